// Package sqlerr defines the error taxonomy shared by the parser adapter,
// the evaluator and the query processors, and maps every user-visible error
// onto the MySQL error number and SQLSTATE a real server would produce.
package sqlerr

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Kind classifies an error by the layer that raised it.
type Kind int

const (
	KindParse Kind = iota
	KindEvaluator
	KindProcessor
	KindCast
	KindIntegrity
)

// Code is a machine-readable tag carried by cast and integrity errors so the
// insert processor can rewrite them with positional context.
type Code string

const (
	CodeNone              Code = ""
	CodeOutOfRange        Code = "OUT_OF_RANGE_VALUE"
	CodeIncorrectInteger  Code = "INCORRECT_INTEGER_VALUE"
	CodeIncorrectDatetime Code = "INCORRECT_DATETIME_VALUE"
	CodeBadNull           Code = "BAD_NULL"
)

// MySQL server error numbers used by the emulator.
const (
	NumBadNull          uint16 = 1048
	NumBadDB            uint16 = 1049
	NumTableExists      uint16 = 1050
	NumNonUniq          uint16 = 1052
	NumNonUniqTable     uint16 = 1066
	NumBadField         uint16 = 1054
	NumWrongFieldGroup  uint16 = 1055
	NumParse            uint16 = 1064
	NumInvalidGroupFunc uint16 = 1111
	NumWrongValueCount  uint16 = 1136
	NumMixOfGroupFunc   uint16 = 1140
	NumNoSuchTable      uint16 = 1146
	NumSubqueryRows     uint16 = 1242
	NumDerivedAlias     uint16 = 1248
	NumOutOfRange       uint16 = 1264
	NumTruncatedWrong   uint16 = 1292
	NumNoDefault        uint16 = 1364
	NumDivisionByZero   uint16 = 1365
	NumIncorrectValue   uint16 = 1366
	NumDataTooLong      uint16 = 1406
	NumUnknownFunc      uint16 = 1305
)

var sqlStates = map[uint16]string{
	NumBadNull:          "23000",
	NumBadDB:            "42000",
	NumTableExists:      "42S01",
	NumNonUniq:          "23000",
	NumNonUniqTable:     "42000",
	NumBadField:         "42S22",
	NumWrongFieldGroup:  "42000",
	NumParse:            "42000",
	NumInvalidGroupFunc: "HY000",
	NumWrongValueCount:  "21S01",
	NumMixOfGroupFunc:   "42000",
	NumNoSuchTable:      "42S02",
	NumSubqueryRows:     "21000",
	NumDerivedAlias:     "42000",
	NumOutOfRange:       "22003",
	NumTruncatedWrong:   "22007",
	NumNoDefault:        "HY000",
	NumDivisionByZero:   "22012",
	NumIncorrectValue:   "HY000",
	NumDataTooLong:      "22001",
	NumUnknownFunc:      "42000",
}

// Error is a structured engine error carrying the raising layer, an optional
// machine code, the matching MySQL error number, and a formatted message.
type Error struct {
	Kind    Kind
	Code    Code
	Number  uint16
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error. Two *Error values match when
// their MySQL numbers are equal.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Number == t.Number
	}
	return false
}

// Evaluator creates an evaluator-level error. The message is raised without
// clause context; the pipeline stage that catches it appends the clause tag.
func Evaluator(number uint16, format string, args ...interface{}) *Error {
	return &Error{Kind: KindEvaluator, Number: number, Message: fmt.Sprintf(format, args...)}
}

// Processor creates a user-visible processor error.
func Processor(number uint16, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProcessor, Number: number, Message: fmt.Sprintf(format, args...)}
}

// SubQuery creates a derived-table validation error. It carries the processor
// kind when propagated but remains distinguishable through its number.
func SubQuery(format string, args ...interface{}) *Error {
	return &Error{Kind: KindProcessor, Number: NumDerivedAlias, Message: fmt.Sprintf(format, args...)}
}

// Cast creates a column-cast error with a machine code the insert processor
// can key its positional rewriting on.
func Cast(code Code, number uint16, format string, args ...interface{}) *Error {
	return &Error{Kind: KindCast, Code: code, Number: number, Message: fmt.Sprintf(format, args...)}
}

// Integrity creates a constraint-violation error (non-null, column count).
func Integrity(code Code, number uint16, format string, args ...interface{}) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Number: number, Message: fmt.Sprintf(format, args...)}
}

// Parse wraps a parser front-end failure. The original parser message is
// preserved untouched.
func Parse(err error) *Error {
	return &Error{Kind: KindParse, Number: NumParse, Message: err.Error(), Err: err}
}

// InClause rewraps an evaluator error with its failing clause, e.g.
// "Unknown column 'x'" becomes "Unknown column 'x' in 'where clause'".
// Non-evaluator errors pass through so each stage adds context exactly once.
func InClause(err error, clause string) error {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindEvaluator {
		return err
	}
	return &Error{
		Kind:    KindProcessor,
		Code:    e.Code,
		Number:  e.Number,
		Message: fmt.Sprintf("%s in '%s'", e.Message, clause),
		Err:     e,
	}
}

// AtRow appends the failing row position to cast errors whose code calls for
// it. Other errors propagate unchanged.
func AtRow(err error, row int) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	switch e.Code {
	case CodeOutOfRange, CodeIncorrectInteger, CodeIncorrectDatetime:
	default:
		return err
	}
	return &Error{
		Kind:    KindProcessor,
		Code:    e.Code,
		Number:  e.Number,
		Message: fmt.Sprintf("%s at row %d", e.Message, row),
		Err:     e,
	}
}

// CodeOf returns the machine code of err, or CodeNone.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

// NumberOf returns the MySQL error number of err, or 0 for foreign errors.
func NumberOf(err error) uint16 {
	var e *Error
	if errors.As(err, &e) {
		return e.Number
	}
	return 0
}

// ToMySQL converts err into the *mysql.MySQLError the go-sql-driver client
// would surface for the same failure, so code written against the driver
// observes identical error numbers and SQL states.
func ToMySQL(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	my := &mysql.MySQLError{Number: e.Number, Message: e.Message}
	if state, ok := sqlStates[e.Number]; ok {
		copy(my.SQLState[:], state)
	}
	return my
}
