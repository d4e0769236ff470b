package models

// Oracle judges whether two instances are transcriptions of the same song.
// Implementations must be deterministic for a given pair but need not be
// transitive; the resolver closes over chains of same-song verdicts.
type Oracle interface {
	SameSong(a, b Instance) bool
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(a, b Instance) bool

func (f OracleFunc) SameSong(a, b Instance) bool {
	return f(a, b)
}
