package partner

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EpnBz принимает уведомления EPN.bz: GET с параметрами в query string либо
// POST с JSON или form-urlencoded телом.
type EpnBz struct{}

func NewEpnBz() *EpnBz { return &EpnBz{} }

func (p *EpnBz) ID() string { return "epn_bz" }

var ErrUnparsable = errors.New("unparsable webhook payload")

func (p *EpnBz) Parse(r *http.Request, body []byte) (RawFields, error) {
	if r.Method != http.MethodPost {
		return fromValues(r.URL.Query()), nil
	}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		return fromJSON(body)
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: bad form body", ErrUnparsable)
		}
		return fromValues(values), nil
	default:
		// EPN.bz не всегда выставляет Content-Type, пробуем JSON
		fields, err := fromJSON(body)
		if err != nil {
			return nil, fmt.Errorf("%w: unsupported content type %q", ErrUnparsable, contentType)
		}
		return fields, nil
	}
}

func fromValues(values url.Values) RawFields {
	fields := make(RawFields, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields
}

func fromJSON(body []byte) (RawFields, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid json", ErrUnparsable)
	}

	fields := make(RawFields, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			// отсутствующее значение, пропускаем
		case string:
			fields[k] = val
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			fields[k] = strconv.FormatBool(val)
		default:
			// вложенные структуры храним как JSON-строку
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			fields[k] = string(b)
		}
	}
	return fields, nil
}
