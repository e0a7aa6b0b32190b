package specialize

// Emitter receives sealed instances. Implementations hand them to the actual
// code generator; each instance arrives observably indistinguishable from a
// function declared with its exact capability list by hand.
type Emitter interface {
	EmitInstance(inst *Instance) error
}

// Emit feeds every instance of the sealed result to e in deterministic
// symbol order. No further resolution happens after emission.
func (res *Result) Emit(e Emitter) error {
	for _, inst := range res.Instances {
		if err := e.EmitInstance(inst); err != nil {
			return err
		}
	}
	return nil
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(inst *Instance) error

func (f EmitterFunc) EmitInstance(inst *Instance) error {
	return f(inst)
}
