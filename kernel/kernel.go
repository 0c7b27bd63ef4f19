package kernel

// Kernel is the computation behind one custom operator instance. Compute is
// called once per graph execution; ctx and every handle obtained from it are
// only valid until Compute returns.
type Kernel interface {
	Compute(ctx *Context) error
}

// Func adapts a function to the Kernel interface.
type Func func(ctx *Context) error

func (f Func) Compute(ctx *Context) error {
	return f(ctx)
}
