package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NullSegment is the path segment used for a NULL partition value,
// following the hive convention so downstream readers recover the NULL.
const NullSegment = "__HIVE_DEFAULT_PARTITION__"

// DataFileName is the file written inside each partition directory.
const DataFileName = "data.parquet"

// KeyValue is a single column's value within a partition key. A nil Value
// means the source column was NULL for this partition.
type KeyValue struct {
	Column string
	Value  any
}

// PartitionKey identifies one partition. Columns appear in the order they
// were configured, which is also the order of the directory levels.
type PartitionKey []KeyValue

// String renders the key as "col=val/col=val" for logs and failure reports.
func (k PartitionKey) String() string {
	parts := make([]string, len(k))
	for i, kv := range k {
		parts[i] = kv.Column + "=" + formatValue(kv.Value)
	}
	return strings.Join(parts, "/")
}

// Dir returns the partition's directory under root, one "col=value" level
// per key column. Values that cannot form a single path element are
// rejected rather than escaped, so the mapping from segment back to value
// stays unambiguous.
func (k PartitionKey) Dir(root string) (string, error) {
	parts := make([]string, 0, len(k)+1)
	parts = append(parts, root)
	for _, kv := range k {
		val := formatValue(kv.Value)
		if err := checkSegment(val); err != nil {
			return "", fmt.Errorf("column %s: %w", kv.Column, err)
		}
		parts = append(parts, kv.Column+"="+val)
	}
	return filepath.Join(parts...), nil
}

// formatValue renders a partition value for use in a path segment.
// Strings pass through verbatim; everything else gets a canonical text
// form so the same value always maps to the same directory.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return NullSegment
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func checkSegment(val string) error {
	if val == "" {
		return fmt.Errorf("empty partition value cannot form a path segment")
	}
	if val == "." || val == ".." {
		return fmt.Errorf("partition value %q would escape the output directory", val)
	}
	if strings.ContainsAny(val, "/\\\x00") {
		return fmt.Errorf("partition value %q contains a path separator", val)
	}
	return nil
}
