package rowmap

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
)

func requiredText(table string, row gateway.Row, column string) (string, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return "", mappingErr(table, column, "missing")
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	}
	return "", mappingErr(table, column, "unexpected type %T", v)
}

func optionalText(table string, row gateway.Row, column string) (*string, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case string:
		return &s, nil
	case []byte:
		out := string(s)
		return &out, nil
	case *string:
		if s == nil {
			return nil, nil
		}
		out := *s
		return &out, nil
	}
	return nil, mappingErr(table, column, "unexpected type %T", v)
}

func requiredDecimal(table string, row gateway.Row, column string) (decimal.Decimal, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return decimal.Zero, mappingErr(table, column, "missing")
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		return parseDecimal(table, column, n)
	case []byte:
		return parseDecimal(table, column, string(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	}
	return decimal.Zero, mappingErr(table, column, "unexpected numeric type %T", v)
}

func parseDecimal(table, column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, mappingErr(table, column, "malformed numeric %q", raw)
	}
	return d, nil
}

func requiredDate(table string, row gateway.Row, column string) (string, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return "", mappingErr(table, column, "missing")
	}
	switch d := v.(type) {
	case time.Time:
		return d.Format(invoicedomain.DateLayout), nil
	case []byte:
		return normalizeDate(table, column, string(d))
	case string:
		return normalizeDate(table, column, d)
	}
	return "", mappingErr(table, column, "unexpected date type %T", v)
}

func normalizeDate(table, column, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(invoicedomain.DateLayout, raw); err == nil {
		return t.Format(invoicedomain.DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Format(invoicedomain.DateLayout), nil
	}
	// sqlite drivers render DATETIME as "2006-01-02 15:04:05..." text.
	if len(raw) > len(invoicedomain.DateLayout) {
		if t, err := time.Parse(invoicedomain.DateLayout, raw[:len(invoicedomain.DateLayout)]); err == nil {
			return t.Format(invoicedomain.DateLayout), nil
		}
	}
	return "", mappingErr(table, column, "malformed date %q", raw)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
