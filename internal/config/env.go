package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/kbolino/go-cgobind/internal/stageerr"
)

// Environment variables set by the enclosing build system.
const (
	RootVar     = "CARGO_MANIFEST_DIR"
	OutDirVar   = "OUT_DIR"
	TargetOSVar = "CARGO_CFG_TARGET_OS"
)

// Env locates one invocation of the stage.
type Env struct {
	Root     string // project root
	OutDir   string // build output directory
	TargetOS string
}

// LoadEnv fills every empty field of overrides from the environment. The
// target OS falls back to GOOS and then to the host.
func LoadEnv(overrides Env, lookup func(string) (string, bool)) (Env, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(override, key string) string {
		if override != "" {
			return override
		}
		v, _ := lookup(key)
		return v
	}
	env := Env{
		Root:     get(overrides.Root, RootVar),
		OutDir:   get(overrides.OutDir, OutDirVar),
		TargetOS: get(overrides.TargetOS, TargetOSVar),
	}
	if env.Root == "" {
		return Env{}, stageerr.Newf(stageerr.ErrConfiguration, RootVar, "project root not set")
	}
	if env.OutDir == "" {
		return Env{}, stageerr.Newf(stageerr.ErrConfiguration, OutDirVar, "output directory not set")
	}
	if env.TargetOS == "" {
		env.TargetOS = get("", "GOOS")
	}
	if env.TargetOS == "" {
		env.TargetOS = runtime.GOOS
	}
	var err error
	if env.Root, err = filepath.Abs(env.Root); err != nil {
		return Env{}, stageerr.New(stageerr.ErrConfiguration, RootVar, err)
	}
	if env.OutDir, err = filepath.Abs(env.OutDir); err != nil {
		return Env{}, stageerr.New(stageerr.ErrConfiguration, OutDirVar, err)
	}
	return env, nil
}

// ConfigFile returns fileName, or the default file in the project root.
func (e Env) ConfigFile(fileName string) string {
	if fileName == "" {
		return filepath.Join(e.Root, DefaultFile)
	}
	return fileName
}
