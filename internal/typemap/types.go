// Package typemap folds the column type names each database engine reports
// into the small set of logical kinds the columnar sink can represent.
package typemap

import "strings"

// Kind is the logical type of a column as it will be written to the sink.
type Kind int

const (
	// Unknown defers the decision to value inspection on the first chunk.
	Unknown Kind = iota
	Bool
	Int
	Float
	String
	Bytes
	Time
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// ForEngine returns the type-name mapper for the named engine. Unregistered
// engines get a mapper that always answers Unknown.
func ForEngine(engine string) func(dbType string) Kind {
	switch engine {
	case "sqlite":
		return sqliteKind
	case "postgres":
		return postgresKind
	case "mysql":
		return mysqlKind
	case "mssql":
		return mssqlKind
	case "oracle":
		return oracleKind
	default:
		return func(string) Kind { return Unknown }
	}
}

// normalize lowers the reported name and strips any length or precision
// suffix, so "VARCHAR(20)" and "DECIMAL(10,5)" compare as their base names.
func normalize(dbType string) string {
	dbType = strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		dbType = strings.TrimSpace(dbType[:i])
	}
	return dbType
}

// sqliteKind follows SQLite's affinity rules on the declared type. Columns
// with no declared type, and numeric-affinity columns that may hold either
// integers or reals, stay Unknown so the first chunk's values decide.
func sqliteKind(dbType string) Kind {
	t := normalize(dbType)
	switch t {
	case "":
		return Unknown
	case "boolean", "bool":
		return Bool
	case "date", "datetime", "timestamp":
		return Time
	case "decimal", "numeric":
		return Unknown
	}
	switch {
	case strings.Contains(t, "int"):
		return Int
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return String
	case strings.Contains(t, "blob"):
		return Bytes
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return Float
	default:
		return Unknown
	}
}

func postgresKind(dbType string) Kind {
	switch normalize(dbType) {
	case "bool":
		return Bool
	case "int2", "int4", "int8", "serial", "bigserial", "smallserial", "oid":
		return Int
	case "float4", "float8":
		return Float
	// numeric has no width-bounded representation in the sink; text keeps it exact.
	case "numeric", "decimal":
		return String
	case "text", "varchar", "bpchar", "char", "name", "uuid", "json", "jsonb", "xml",
		"time", "timetz", "interval", "inet", "cidr", "macaddr":
		return String
	case "bytea":
		return Bytes
	case "date", "timestamp", "timestamptz":
		return Time
	default:
		return Unknown
	}
}

func mysqlKind(dbType string) Kind {
	switch normalize(dbType) {
	case "tinyint", "smallint", "mediumint", "int", "bigint", "year":
		return Int
	case "float", "double":
		return Float
	case "decimal":
		return String
	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext",
		"enum", "set", "json", "time":
		return String
	case "binary", "varbinary", "blob", "tinyblob", "mediumblob", "longblob", "bit", "geometry":
		return Bytes
	// requires parseTime=true on the DSN, which the mysql engine always sets.
	case "date", "datetime", "timestamp":
		return Time
	default:
		return Unknown
	}
}

func mssqlKind(dbType string) Kind {
	switch normalize(dbType) {
	case "bit":
		return Bool
	case "tinyint", "smallint", "int", "bigint":
		return Int
	case "float", "real":
		return Float
	case "decimal", "numeric", "money", "smallmoney":
		return String
	case "char", "nchar", "varchar", "nvarchar", "text", "ntext",
		"uniqueidentifier", "xml", "sql_variant", "hierarchyid", "time":
		return String
	// mssql "timestamp" is a rowversion, not a point in time.
	case "binary", "varbinary", "image", "timestamp", "rowversion", "geometry", "geography":
		return Bytes
	case "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return Time
	default:
		return Unknown
	}
}

func oracleKind(dbType string) Kind {
	t := normalize(dbType)
	switch t {
	// NUMBER scans as a decimal string; text keeps arbitrary precision exact.
	case "number":
		return String
	case "binary_float", "binary_double":
		return Float
	case "varchar2", "nvarchar2", "char", "nchar", "clob", "nclob", "long", "rowid", "urowid":
		return String
	case "raw", "long raw", "blob", "bfile":
		return Bytes
	case "date":
		return Time
	}
	if strings.HasPrefix(t, "timestamp") {
		return Time
	}
	return Unknown
}
