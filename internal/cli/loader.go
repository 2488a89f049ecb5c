package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tohu/internal/blueprint"
	"github.com/roach88/tohu/internal/store"
)

// Error code constants shared by all commands. Blueprint validation uses
// the E2xx codes defined in package blueprint.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeInvalidFlag   = "E002" // Flag value out of range or inconsistent
	ErrCodeNoFiles       = "E003" // No scenario files found
	ErrCodeLoadFailed    = "E004" // File could not be read
	ErrCodeNotFound      = "E005" // Path or run not found
	ErrCodeGenerate      = "E006" // Generation failed at runtime
	ErrCodeWriteFailed   = "E007" // Sink or ledger write error
	ErrCodeDeterminism   = "E008" // Replay fingerprint mismatch
	ErrCodeScenarioFails = "E009" // One or more scenarios failed
)

// LoadError is a problem reading a blueprint file, as opposed to a problem
// with its contents.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// loadedBlueprint is a blueprint file compiled into a generator class.
type loadedBlueprint struct {
	Path     string
	Format   string
	Compiled *blueprint.Compiled
}

// loadBlueprint reads and compiles a blueprint. Problems with the file
// itself come back as *LoadError; problems with its contents as
// blueprint.ValidationErrors.
func loadBlueprint(path string, opts ...blueprint.Option) (*loadedBlueprint, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "blueprint not found"}
	case err != nil:
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	case info.IsDir():
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: "is a directory"}
	}

	bp, err := blueprint.Load(path)
	if err != nil {
		var verrs blueprint.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, verrs
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}
	compiled, err := blueprint.Compile(bp, opts...)
	if err != nil {
		return nil, err
	}
	return &loadedBlueprint{Path: path, Format: store.FormatOf(path), Compiled: compiled}, nil
}

// reportLoadError writes a loadBlueprint error and returns the matching
// ExitError: unreadable files are command errors, invalid blueprints are
// failures.
func reportLoadError(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		_ = f.Error(le.Code, le.Message, map[string]string{"path": le.Path})
		return WrapExitError(ExitCommandError, le.Message, err)
	}

	var verrs blueprint.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "blueprint failed", err)
	}
	if f.IsJSON() {
		_ = f.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: verrs},
			Error:  &CLIError{Code: verrs[0].Code, Message: verrs[0].Message},
		})
	} else {
		fmt.Fprintln(f.Writer, "✗ Blueprint invalid")
		fmt.Fprintln(f.Writer)
		for _, e := range verrs {
			if e.Path != "" {
				fmt.Fprintf(f.Writer, "%s\n", e.Path)
			}
			fmt.Fprintf(f.Writer, "  %s: %s\n\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
}
