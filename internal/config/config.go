package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the settings file name looked up when none is given.
const DefaultFile = "lfmerge.cue"

// Error codes for LoadError.
const (
	ErrCodeRead     = "E_CONFIG_READ"
	ErrCodeCompile  = "E_CONFIG_COMPILE"
	ErrCodeValidate = "E_CONFIG_VALIDATE"
	ErrCodeDecode   = "E_CONFIG_DECODE"
)

// Settings is the decoded configuration.
type Settings struct {
	ServerRoot   string        `json:"server_root"`
	JournalPath  string        `json:"journal"`
	LogLevel     string        `json:"log_level"`
	LogFile      string        `json:"log_file,omitempty"`
	BackupSuffix string        `json:"backup_suffix"`
	LockTimeout  time.Duration `json:"lock_timeout"`
	Debounce     time.Duration `json:"debounce"`
}

// rawSettings mirrors #Settings field for field.
type rawSettings struct {
	ServerRoot   string `json:"serverRoot"`
	Journal      string `json:"journal"`
	LogLevel     string `json:"logLevel"`
	LogFile      string `json:"logFile"`
	BackupSuffix string `json:"backupSuffix"`
	LockTimeout  string `json:"lockTimeout"`
	Debounce     string `json:"debounce"`
}

// LoadError represents an error that occurred while loading settings.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default returns the settings used when no file is present.
func Default() Settings {
	s, err := decode(cuecontext.New(), nil, "")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return s
}

// Load reads a CUE settings file and applies schema defaults. If path is
// empty or names a file that does not exist, defaults are returned.
func Load(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, &LoadError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(data, path)
}

// Parse decodes settings source. filename is used in error positions.
func Parse(data []byte, filename string) (Settings, error) {
	return decode(cuecontext.New(), data, filename)
}

func decode(ctx *cue.Context, data []byte, filename string) (Settings, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Settings{}, cueLoadError(ErrCodeCompile, err)
	}
	value := schema.LookupPath(cue.ParsePath("#Settings"))

	if data != nil {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Settings{}, cueLoadError(ErrCodeCompile, err)
		}
		value = value.Unify(user)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Settings{}, cueLoadError(ErrCodeValidate, err)
	}

	var raw rawSettings
	if err := value.Decode(&raw); err != nil {
		return Settings{}, cueLoadError(ErrCodeDecode, err)
	}

	lock, err := time.ParseDuration(raw.LockTimeout)
	if err != nil {
		return Settings{}, &LoadError{Code: ErrCodeValidate, Message: fmt.Sprintf("lockTimeout: %v", err)}
	}
	debounce, err := time.ParseDuration(raw.Debounce)
	if err != nil {
		return Settings{}, &LoadError{Code: ErrCodeValidate, Message: fmt.Sprintf("debounce: %v", err)}
	}

	return Settings{
		ServerRoot:   raw.ServerRoot,
		JournalPath:  raw.Journal,
		LogLevel:     raw.LogLevel,
		LogFile:      raw.LogFile,
		BackupSuffix: raw.BackupSuffix,
		LockTimeout:  lock,
		Debounce:     debounce,
	}, nil
}

func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	if pos := cueerrors.Positions(err); len(pos) > 0 {
		le.Pos = pos[0]
	}
	return le
}
