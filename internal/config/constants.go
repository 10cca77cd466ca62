package config

const SourceFileExt = ".sag"

// Built-in function names
const (
	PrintFuncName = "print"
	LenFuncName   = "len"
	RangeFuncName = "range"
)

// ConfigFileName is looked up in the working directory.
const ConfigFileName = "sagara.yaml"

// DefaultPackagesDir is where installed packages land, relative to the
// user home directory.
const DefaultPackagesDir = ".sagara/packages"

// RegistryFileName is the SQLite database holding install records.
const RegistryFileName = "registry.db"
