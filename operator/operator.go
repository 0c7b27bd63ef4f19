package operator

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/kernel"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/resource"
	"github.com/wippyai/ortext/sys"
	"github.com/wippyai/ortext/value"
)

type Characteristic = sys.Characteristic

const (
	Required = sys.Required
	Optional = sys.Optional
	Variadic = sys.Variadic
)

// IODef describes one input or output slot of an operator.
type IODef struct {
	Type           value.ElementType
	Characteristic Characteristic
	// MemType is where the runtime places an input. Ignored for outputs.
	MemType memory.MemType
}

// Operator describes a custom operator and creates its kernels.
type Operator interface {
	// Name is the op type used by graph nodes.
	Name() string
	// ExecutionProviderType names the provider the kernel runs under.
	// Empty means CPU.
	ExecutionProviderType() string
	Inputs() []IODef
	Outputs() []IODef
	// CreateKernel is called once per node. attrs is borrowed; use Clone
	// to keep it beyond the call.
	CreateKernel(attrs *kernel.Attributes) (kernel.Kernel, error)
}

// Arity is implemented by operators whose last input or output is variadic
// and needs more than one value.
type Arity interface {
	MinInputArity() int
	MinOutputArity() int
}

// Domain is a named set of operators.
type Domain struct {
	name string
	ops  []Operator
}

// NewDomain creates an empty domain. The empty name is the default ONNX
// domain.
func NewDomain(name string) *Domain {
	return &Domain{name: name}
}

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.name
}

// Add appends op to the domain.
func (d *Domain) Add(op Operator) *Domain {
	d.ops = append(d.ops, op)
	return d
}

// Operators returns the domain's operators in insertion order.
func (d *Domain) Operators() []Operator {
	return append([]Operator(nil), d.ops...)
}

func definition(op Operator, handle resource.Handle) sys.CustomOpDef {
	def := sys.CustomOpDef{
		Name:                  op.Name(),
		ExecutionProviderType: op.ExecutionProviderType(),
		MinInputArity:         1,
		MinOutputArity:        1,
		HomogeneousInputs:     true,
		HomogeneousOutputs:    true,
		Handle:                handle.Pointer(),
	}
	for _, in := range op.Inputs() {
		def.Inputs = append(def.Inputs, sys.IODef{Type: in.Type, Characteristic: in.Characteristic, MemType: in.MemType})
	}
	for _, out := range op.Outputs() {
		def.Outputs = append(def.Outputs, sys.IODef{Type: out.Type, Characteristic: out.Characteristic})
	}
	if a, ok := op.(Arity); ok {
		def.MinInputArity = a.MinInputArity()
		def.MinOutputArity = a.MinOutputArity()
	}
	return def
}

// Registration is a domain attached to session options. It must be closed
// after the session options and every session created from them have been
// released.
type Registration struct {
	api      sys.API
	domain   sys.CustomOpDomain
	ops      []sys.CustomOp
	handles  []resource.Handle
	released atomic.Bool
}

// Register creates the native domain and operators and adds them to so.
// Nothing is left behind on failure.
func (d *Domain) Register(api sys.API, so sys.SessionOptions) (*Registration, error) {
	reg := &Registration{api: api}

	domain, err := api.CreateCustomOpDomain(d.name)
	if err != nil {
		return nil, errors.Native(errors.PhaseOperator, "CreateCustomOpDomain", err)
	}
	reg.domain = domain

	for _, op := range d.ops {
		h := operators.Insert(op)
		if h == 0 {
			reg.Close()
			return nil, errors.New(errors.PhaseOperator, errors.KindInvalidData).
				Path(d.name, op.Name()).
				Detail("operator table is closed").
				Build()
		}
		reg.handles = append(reg.handles, h)

		native, err := api.CreateCustomOp(definition(op, h))
		if err != nil {
			reg.Close()
			return nil, errors.New(errors.PhaseOperator, errors.KindNativeStatus).
				Path(d.name, op.Name()).
				Detail("CreateCustomOp").
				Cause(err).
				Build()
		}
		reg.ops = append(reg.ops, native)

		if err := api.CustomOpDomainAdd(domain, native); err != nil {
			reg.Close()
			return nil, errors.New(errors.PhaseOperator, errors.KindNativeStatus).
				Path(d.name, op.Name()).
				Detail("CustomOpDomain_Add").
				Cause(err).
				Build()
		}
	}

	if err := api.AddCustomOpDomain(so, domain); err != nil {
		reg.Close()
		return nil, errors.Native(errors.PhaseOperator, "AddCustomOpDomain", err)
	}

	Logger().Debug("registered custom operator domain",
		zap.String("domain", d.name),
		zap.Int("operators", len(d.ops)))
	return reg, nil
}

// Close releases the native domain and operators exactly once.
func (r *Registration) Close() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.domain != nil {
		r.api.ReleaseCustomOpDomain(r.domain)
	}
	for _, op := range r.ops {
		r.api.ReleaseCustomOp(op)
	}
	for _, h := range r.handles {
		operators.Remove(h)
	}
}
