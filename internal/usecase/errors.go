package usecase

// DomainError: culpa do chamador (entrada inválida, recurso inexistente).
// Vira 4xx na borda HTTP.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

// TechnicalError: falha de infraestrutura (banco, LLM, fila). A borda HTTP
// devolve um único erro genérico, nunca o detalhe.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	_, ok := err.(*TechnicalError)
	return ok
}
