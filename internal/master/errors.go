package master

import (
	"errors"

	"batchfleet/internal/config"
	"batchfleet/pkg/catalogue"
	"batchfleet/pkg/model"
)

var (
	ErrExportPathRequired    = errors.New("export path not specified")
	ErrCataloguePathRequired = errors.New("no catalogue specified")
)

// 进程退出码
const (
	ExitOK              = 0
	ExitError           = 1
	ExitConfig          = 2
	ExitNoNodes         = 3
	ExitNothingSelected = 4
	ExitRemoteFailures  = 5
)

// ExitCode 把一次运行的结果映射为进程退出码
func ExitCode(summary *model.RunSummary, err error) int {
	switch {
	case errors.Is(err, ErrExportPathRequired),
		errors.Is(err, ErrCataloguePathRequired),
		errors.Is(err, config.ErrInvalidConfig):
		return ExitConfig
	case errors.Is(err, catalogue.ErrNothingSelected),
		errors.Is(err, catalogue.ErrInvalidCatalogue),
		errors.Is(err, catalogue.ErrCatalogueNotFound):
		return ExitNothingSelected
	case err != nil:
		return ExitError
	}

	if summary == nil {
		return ExitOK
	}
	switch summary.Outcome {
	case model.OutcomeNoNodes:
		return ExitNoNodes
	case model.OutcomeNothingSelected:
		return ExitNothingSelected
	case model.OutcomeCompleteWithFailures:
		return ExitRemoteFailures
	}
	return ExitOK
}
