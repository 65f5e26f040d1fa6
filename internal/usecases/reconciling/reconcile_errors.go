package reconciling

import (
	"errors"
	"fmt"

	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// Erros específicos para o contexto de reconciliação
var (
	// Erros estruturais, encerram a execução
	ErrSchema   = errors.New("error ensuring staging and target schema")
	ErrSeed     = errors.New("error seeding staging table")
	ErrExtract  = errors.New("error extracting pending spend rows")
	ErrLoad     = errors.New("error loading batch into staging")
	ErrMerge    = errors.New("error merging staging into target")
	ErrTruncate = errors.New("error emptying staging table")

	// Erros de execução concorrente
	ErrRunInProgress = errors.New("another reconcile run is in progress")

	// Erros por registro, o registro é descartado e a execução segue
	ErrInvalidWindow   = errors.New("invalid hourly window")
	ErrReservedAccount = errors.New("account id is reserved for the sentinel row")
)

// StepError é um erro com o estado em que a execução parou
type StepError struct {
	Step domain.RunState // Estado em que a falha ocorreu
	Kind error           // Erro da etapa (ErrSchema, ErrMerge...)
	Err  error           // Causa
}

// Error implementa a interface error
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind.Error(), e.Err.Error())
}

// Unwrap permite errors.Is tanto com o erro da etapa quanto com a causa
func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func NewStepError(step domain.RunState, kind, err error) *StepError {
	return &StepError{
		Step: step,
		Kind: kind,
		Err:  err,
	}
}
