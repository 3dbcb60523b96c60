// Package argv models the command-line style arguments accepted by the
// embedded engine and serializes them into the positional argument vector its
// open call expects. The engine consumes an argc/argv pair, so the serialized
// vector always starts with a program-name placeholder.
package argv

import (
	"fmt"

	"github.com/chembed/chembed/internal/errors"
)

// Placeholder occupies slot zero of every serialized vector. The engine
// parses argv like a clickhouse binary invocation and skips argument zero.
const Placeholder = "clickhouse"

// OutputFormat selects the serialization of query output.
type OutputFormat int

const (
	// TabSeparated is the engine default.
	TabSeparated OutputFormat = iota
	TabSeparatedWithNames
	CSV
	CSVWithNames
	JSON
	JSONEachRow
	JSONCompact
	Pretty
	PrettyCompact
	Values
	Arrow
	Parquet
)

// String returns the engine's name for the format.
func (f OutputFormat) String() string {
	switch f {
	case TabSeparated:
		return "TabSeparated"
	case TabSeparatedWithNames:
		return "TabSeparatedWithNames"
	case CSV:
		return "CSV"
	case CSVWithNames:
		return "CSVWithNames"
	case JSON:
		return "JSON"
	case JSONEachRow:
		return "JSONEachRow"
	case JSONCompact:
		return "JSONCompact"
	case Pretty:
		return "Pretty"
	case PrettyCompact:
		return "PrettyCompact"
	case Values:
		return "Values"
	case Arrow:
		return "Arrow"
	case Parquet:
		return "Parquet"
	default:
		return "TabSeparated"
	}
}

// ParseOutputFormat maps an engine format name back to its variant.
func ParseOutputFormat(name string) (OutputFormat, error) {
	for f := TabSeparated; f <= Parquet; f++ {
		if f.String() == name {
			return f, nil
		}
	}
	return TabSeparated, errors.NewInvalidInputError("ParseOutputFormat", fmt.Sprintf("unknown output format %q", name))
}

// InputFormat selects the parsing format for file-reading table functions.
type InputFormat int

const (
	InputCSV InputFormat = iota
	InputCSVWithNames
	InputTSV
	InputJSONEachRow
	InputParquet
	InputArrow
)

// String returns the engine's name for the input format.
func (f InputFormat) String() string {
	switch f {
	case InputCSV:
		return "CSV"
	case InputCSVWithNames:
		return "CSVWithNames"
	case InputTSV:
		return "TSV"
	case InputJSONEachRow:
		return "JSONEachRow"
	case InputParquet:
		return "Parquet"
	case InputArrow:
		return "Arrow"
	default:
		return "CSV"
	}
}

// LogLevel selects the engine's internal log verbosity. The engine uses
// "information" and "warning" rather than the short names.
type LogLevel int

const (
	LogTrace LogLevel = iota
	LogDebug
	LogInfo
	LogWarn
	LogError
)

// String returns the engine's name for the level.
func (l LogLevel) String() string {
	switch l {
	case LogTrace:
		return "trace"
	case LogDebug:
		return "debug"
	case LogInfo:
		return "information"
	case LogWarn:
		return "warning"
	case LogError:
		return "error"
	default:
		return "information"
	}
}

// Kind discriminates the closed set of argument variants.
type Kind int

const (
	KindOutputFormat Kind = iota
	KindInputFormat
	KindMultiQuery
	KindDataPath
	KindLogLevel
	KindConfigFile
	KindCustom
)

// Arg is one engine option. Construct values with the With* helpers; invalid
// combinations are rejected during serialization rather than at the foreign
// call boundary.
type Arg struct {
	kind  Kind
	value string
}

// Kind returns the variant tag.
func (a Arg) Kind() Kind { return a.kind }

// Value returns the variant payload, already rendered for the engine where
// the variant carries one.
func (a Arg) Value() string { return a.value }

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(f OutputFormat) Arg {
	return Arg{kind: KindOutputFormat, value: f.String()}
}

// WithInputFormat selects the parsing format for file-reading table functions.
func WithInputFormat(f InputFormat) Arg {
	return Arg{kind: KindInputFormat, value: f.String()}
}

// WithMultiQuery marks the SQL text as a ;-delimited batch executed as one
// engine call.
func WithMultiQuery() Arg {
	return Arg{kind: KindMultiQuery}
}

// WithDataPath binds the connection to an on-disk data directory.
func WithDataPath(path string) Arg {
	return Arg{kind: KindDataPath, value: path}
}

// WithLogLevel sets the engine's internal log verbosity.
func WithLogLevel(l LogLevel) Arg {
	return Arg{kind: KindLogLevel, value: l.String()}
}

// WithConfigFile points the engine at a server configuration file.
func WithConfigFile(path string) Arg {
	return Arg{kind: KindConfigFile, value: path}
}

// WithCustom passes a raw flag through unmodified, e.g. "--multiline".
func WithCustom(flag string) Arg {
	return Arg{kind: KindCustom, value: flag}
}

// WithCustomValue passes a key/value flag through as "--key=value".
func WithCustomValue(key, value string) Arg {
	return Arg{kind: KindCustom, value: fmt.Sprintf("--%s=%s", key, value)}
}

// render returns the token the engine expects for a single argument.
func (a Arg) render() string {
	switch a.kind {
	case KindOutputFormat:
		return "--output-format=" + a.value
	case KindInputFormat:
		return "--input-format=" + a.value
	case KindMultiQuery:
		return "-n"
	case KindDataPath:
		return "--path=" + a.value
	case KindLogLevel:
		return "--log-level=" + a.value
	case KindConfigFile:
		return "--config-file=" + a.value
	case KindCustom:
		return a.value
	default:
		return a.value
	}
}

// Serialize builds the positional argument vector for the engine's open call.
// The order is mandated by the engine: placeholder first, the data path when
// present, then format and flag arguments, the multi-query flag, and custom
// flags last. At most one output format and one input format may appear;
// duplicates are a caller error. A data path passed both as dataPath and as
// an explicit argument is likewise rejected.
func Serialize(args []Arg, dataPath string) ([]string, error) {
	out := make([]string, 0, len(args)+2)
	out = append(out, Placeholder)

	path := dataPath
	var formats, custom []string
	var multi bool
	seen := map[Kind]bool{}

	for _, a := range args {
		switch a.kind {
		case KindOutputFormat, KindInputFormat, KindLogLevel, KindConfigFile:
			if seen[a.kind] {
				return nil, errors.NewDuplicateArgError("Serialize", a.render())
			}
			seen[a.kind] = true
			formats = append(formats, a.render())
		case KindDataPath:
			if path != "" {
				return nil, errors.NewDuplicateArgError("Serialize", "--path")
			}
			path = a.value
		case KindMultiQuery:
			multi = true
		case KindCustom:
			custom = append(custom, a.render())
		}
	}

	if path != "" {
		out = append(out, "--path="+path)
	}
	out = append(out, formats...)
	if multi {
		out = append(out, Arg{kind: KindMultiQuery}.render())
	}
	out = append(out, custom...)

	return out, nil
}

// ExtractOutputFormat returns the first output format among args, or fallback
// when none is present.
func ExtractOutputFormat(args []Arg, fallback OutputFormat) (OutputFormat, error) {
	found := false
	result := fallback
	for _, a := range args {
		if a.kind != KindOutputFormat {
			continue
		}
		if found {
			return fallback, errors.NewDuplicateArgError("ExtractOutputFormat", "--output-format")
		}
		found = true
		f, err := ParseOutputFormat(a.value)
		if err != nil {
			return fallback, err
		}
		result = f
	}
	return result, nil
}
