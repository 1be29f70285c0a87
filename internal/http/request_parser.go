// This file implements request decoding. Each field is decoded on its own
// so a single 422 response lists every shape problem of the request.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// Error types reported in FieldError.Type.
const (
	errMissing       = "missing"
	errJSONInvalid   = "json_invalid"
	errModelType     = "model_attributes_type"
	errIntParsing    = "int_parsing"
	errIntType       = "int_type"
	errStringType    = "string_type"
	errBoolParsing   = "bool_parsing"
	errBoolType      = "bool_type"
	errDateParsing   = "date_parsing"
	errDecimal       = "decimal_parsing"
	errWholeDigits   = "decimal_whole_digits"
	errMaxPlaces     = "decimal_max_places"
	errEnum          = "enum"
	errGreaterThan   = "greater_than"
	errPattern       = "string_pattern_mismatch"
	errTooLong       = "string_too_long"
	errTooShort      = "string_too_short"
	errValue         = "value_error"
	locBody, locPath = "body", "path"
	locQuery         = "query"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ValidationError collects request shape problems. It becomes a 422.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = strings.Join(f.Loc, ".") + ": " + f.Msg
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(msg, typ string, loc ...string) {
	e.Fields = append(e.Fields, FieldError{Loc: loc, Msg: msg, Type: typ})
}

// err returns e when it holds problems and nil otherwise.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// bodyFields decodes a JSON object field by field.
type bodyFields struct {
	raw  map[string]json.RawMessage
	errs *ValidationError
}

// parseBody reads a JSON object from r. A body that is not an object is
// reported on errs and yields an empty field set.
func parseBody(w http.ResponseWriter, r *http.Request, errs *ValidationError) *bodyFields {
	b := &bodyFields{raw: map[string]json.RawMessage{}, errs: errs}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		errs.add("Request body could not be read: "+err.Error(), errJSONInvalid, locBody)
		return b
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		errs.add("Field required", errMissing, locBody)
		return b
	}
	if !json.Valid(data) {
		errs.add("JSON decode error", errJSONInvalid, locBody)
		return b
	}
	if data[0] != '{' {
		errs.add("Input should be a valid dictionary or object", errModelType, locBody)
		return b
	}
	if err := json.Unmarshal(data, &b.raw); err != nil {
		errs.add("JSON decode error", errJSONInvalid, locBody)
	}
	return b
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// lookup returns the raw value of name; null counts as absent.
func (b *bodyFields) lookup(name string) (json.RawMessage, bool) {
	raw, ok := b.raw[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func (b *bodyFields) missing(name string) {
	b.errs.add("Field required", errMissing, locBody, name)
}

// String decodes an optional string. Control characters are stripped.
func (b *bodyFields) String(name string) *string {
	raw, ok := b.lookup(name)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		b.errs.add("Input should be a valid string", errStringType, locBody, name)
		return nil
	}
	s = sanitizeInput(s)
	return &s
}

// RequiredString decodes a non-empty string of at most maxLen characters.
func (b *bodyFields) RequiredString(name string, maxLen int) string {
	if _, ok := b.lookup(name); !ok {
		b.missing(name)
		return ""
	}
	s := b.BoundedString(name, maxLen)
	if s == nil {
		return ""
	}
	return *s
}

// BoundedString decodes an optional string and checks its length. Present
// strings must not be blank.
func (b *bodyFields) BoundedString(name string, maxLen int) *string {
	s := b.String(name)
	if s == nil {
		return nil
	}
	if *s == "" {
		b.errs.add("String should have at least 1 character", errTooShort, locBody, name)
		return nil
	}
	if utf8.RuneCountInString(*s) > maxLen {
		b.errs.add(fmt.Sprintf("String should have at most %d characters", maxLen), errTooLong, locBody, name)
		return nil
	}
	return s
}

// Text decodes an optional free-text field that defaults to "".
func (b *bodyFields) Text(name string, maxLen int) string {
	s := b.String(name)
	if s == nil {
		return ""
	}
	if utf8.RuneCountInString(*s) > maxLen {
		b.errs.add(fmt.Sprintf("String should have at most %d characters", maxLen), errTooLong, locBody, name)
		return ""
	}
	return *s
}

// Int64 decodes an optional integer id.
func (b *bodyFields) Int64(name string) *int64 {
	raw, ok := b.lookup(name)
	if !ok {
		return nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		b.errs.add("Input should be a valid integer", errIntType, locBody, name)
		return nil
	}
	return &v
}

func (b *bodyFields) RequiredInt64(name string) int64 {
	if _, ok := b.lookup(name); !ok {
		b.missing(name)
		return 0
	}
	if v := b.Int64(name); v != nil {
		return *v
	}
	return 0
}

func (b *bodyFields) Bool(name string) *bool {
	raw, ok := b.lookup(name)
	if !ok {
		return nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		b.errs.add("Input should be a valid boolean", errBoolType, locBody, name)
		return nil
	}
	return &v
}

// RequiredMoney decodes a JSON number or numeric string into Money.
func (b *bodyFields) RequiredMoney(name string) core.Money {
	raw, ok := b.lookup(name)
	if !ok {
		b.missing(name)
		return core.Money{}
	}
	var m core.Money
	err := json.Unmarshal(raw, &m)
	switch {
	case err == nil:
		return m
	case errors.Is(err, core.ErrAmountTooLarge):
		b.errs.add(fmt.Sprintf("Decimal input should have no more than %d digits before the decimal point", core.MaxIntegerDigits),
			errWholeDigits, locBody, name)
	case errors.Is(err, core.ErrAmountTooPrecise):
		b.errs.add("Decimal input has too many decimal places", errMaxPlaces, locBody, name)
	default:
		b.errs.add("Input should be a valid decimal", errDecimal, locBody, name)
	}
	return core.Money{}
}

func (b *bodyFields) RequiredDate(name string) core.Date {
	raw, ok := b.lookup(name)
	if !ok {
		b.missing(name)
		return core.Date{}
	}
	var d core.Date
	if err := json.Unmarshal(raw, &d); err != nil {
		b.errs.add("Input should be a valid date in the format YYYY-MM-DD", errDateParsing, locBody, name)
		return core.Date{}
	}
	return d
}

// enumString decodes an optional string restricted to allowed.
func (b *bodyFields) enumString(name string, allowed ...string) *string {
	s := b.String(name)
	if s == nil {
		return nil
	}
	for _, a := range allowed {
		if *s == a {
			return s
		}
	}
	b.errs.add("Input should be "+quoteList(allowed), errEnum, locBody, name)
	return nil
}

func (b *bodyFields) requiredEnum(name string, allowed ...string) string {
	if _, ok := b.lookup(name); !ok {
		b.missing(name)
		return ""
	}
	if s := b.enumString(name, allowed...); s != nil {
		return *s
	}
	return ""
}

// quoteList renders 'A', 'B' or 'C'.
func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

var (
	categoryKinds  = []string{string(core.CategoryIncome), string(core.CategoryExpense)}
	categoryGroups = []string{string(core.GroupEssential), string(core.GroupLifestyle), string(core.GroupFuture), string(core.GroupOther)}
	txKinds        = []string{string(core.TxIncome), string(core.TxExpense), string(core.TxTransfer)}
)

// pathID parses the {id} route variable.
func pathID(r *http.Request, errs *ValidationError) int64 {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.add("Input should be a valid integer, unable to parse string as an integer", errIntParsing, locPath, "id")
		return 0
	}
	return id
}

// queryParams reads optional query values and records parse problems.
type queryParams struct {
	r    *http.Request
	errs *ValidationError
}

func newQueryParams(r *http.Request, errs *ValidationError) queryParams {
	return queryParams{r: r, errs: errs}
}

func (q queryParams) value(name string) (string, bool) {
	v := strings.TrimSpace(q.r.URL.Query().Get(name))
	return v, v != ""
}

// Required returns the raw value of name or records it as missing.
func (q queryParams) Required(name string) string {
	v, ok := q.value(name)
	if !ok {
		q.errs.add("Field required", errMissing, locQuery, name)
	}
	return v
}

// RequiredMonth returns ?name= exactly as sent. Months are not trimmed so
// " 2026-01" fails the YYYY-MM check instead of being accepted.
func (q queryParams) RequiredMonth(name string) string {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		q.errs.add("Field required", errMissing, locQuery, name)
	}
	return v
}

// Bool accepts the usual spellings of true and false.
func (q queryParams) Bool(name string, def bool) bool {
	v, ok := q.value(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	}
	q.errs.add("Input should be a valid boolean, unable to interpret input", errBoolParsing, locQuery, name)
	return def
}

func (q queryParams) Int64(name string) *int64 {
	v, ok := q.value(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		q.errs.add("Input should be a valid integer, unable to parse string as an integer", errIntParsing, locQuery, name)
		return nil
	}
	return &n
}

func (q queryParams) Date(name string) *core.Date {
	v, ok := q.value(name)
	if !ok {
		return nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		q.errs.add("Input should be a valid date in the format YYYY-MM-DD", errDateParsing, locQuery, name)
		return nil
	}
	return &d
}

func (q queryParams) TxKind(name string) *core.TxKind {
	v, ok := q.value(name)
	if !ok {
		return nil
	}
	k := core.TxKind(v)
	if !k.Valid() {
		q.errs.add("Input should be "+quoteList(txKinds), errEnum, locQuery, name)
		return nil
	}
	return &k
}

// RequiredMonth validates a YYYY-MM body field. Shape and range problems
// are both reported as 422.
func (b *bodyFields) RequiredMonth(name string) core.Month {
	if _, ok := b.lookup(name); !ok {
		b.missing(name)
		return core.Month{}
	}
	s := b.String(name)
	if s == nil {
		return core.Month{}
	}
	if !monthPattern.MatchString(*s) {
		b.errs.add(`String should match pattern '^\d{4}-\d{2}$'`, errPattern, locBody, name)
		return core.Month{}
	}
	m, err := core.ParseMonth(*s)
	if err != nil {
		msg := err.Error()
		if de, ok := core.AsError(err); ok {
			msg = de.Message
		}
		b.errs.add("Value error, "+msg, errValue, locBody, name)
		return core.Month{}
	}
	return m
}
