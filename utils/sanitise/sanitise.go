package sanitise

import (
	"errors"

	"github.com/microcosm-cc/bluemonday"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrSanitisation         = errors.New("failed sanitisation")
	ErrUnstableSanitisation = errors.New("sanitisation unstable")
)

const maxCntForStabilisation = 10

// Policies are safe for concurrent use once built.
var (
	plainPolicy = bluemonday.StrictPolicy()
	richPolicy  = bluemonday.UGCPolicy()
)

// Plain strips every tag from value.
func Plain(value string) (string, error) {
	return stabilise(plainPolicy, value)
}

// Rich keeps the user generated content subset of HTML in value and drops
// everything else, scripts and event handlers included.
func Rich(value string) (string, error) {
	return stabilise(richPolicy, value)
}

// Fields sanitises every value of fields, using Rich for the keys rich
// reports and Plain for the rest. The input map is not modified.
func Fields(fields map[string]string, rich func(key string) bool) (map[string]string, error) {
	out := make(map[string]string, len(fields))

	for k, v := range fields {
		var (
			clean string
			err   error
		)

		if rich != nil && rich(k) {
			clean, err = Rich(v)
		} else {
			clean, err = Plain(v)
		}

		if err != nil {
			return nil, errs.Wrap(ErrSanitisation, err)
		}

		out[k] = clean
	}

	return out, nil
}

func stabilise(p *bluemonday.Policy, value string) (string, error) {
	cnt := 0

	var sanitisedValue string

	// Sanitising again must not change the result, otherwise content was
	// nested to survive one pass.
	for {
		sanitisedValue = p.Sanitize(value)
		if sanitisedValue == value {
			break
		}

		value = sanitisedValue

		cnt++
		if cnt == maxCntForStabilisation {
			return "", ErrUnstableSanitisation
		}
	}

	return sanitisedValue, nil
}
