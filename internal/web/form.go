package web

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/schema"
	"github.com/willemschots/newsletter/internal/errorz"
)

// defaultRequest is the default way to map a request to a struct.
func defaultRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN
	err := r.ParseForm()
	if err != nil {
		return in, errorz.InvalidInput{err}
	}

	// The CSRF token is checked by middleware and is not part of any target type.
	r.PostForm.Del(csrfTokenField)

	err = s.decoder.Decode(&in, r.PostForm)
	return in, decodeError(err)
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		keys := make([]string, 0, len(multiErr))
		for key := range multiErr {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var invalid errorz.InvalidInput
		for _, key := range keys {
			invalid.Add(key, multiErr[key])
		}

		return invalid
	}

	return err
}

func isInvalidInput(err error) bool {
	var invalidInput errorz.InvalidInput
	return errors.As(err, &invalidInput)
}
