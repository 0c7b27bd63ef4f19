//go:build cuda || load_dynamic

package ep

const cudaCompiled = true
