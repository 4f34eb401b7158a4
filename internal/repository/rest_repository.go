package repository

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/etp-gateway/pkg/baas"
)

// notFound maps the data API's empty single-row result onto sql.ErrNoRows
// so services handle both backends alike.
func notFound(err error) error {
	if errors.Is(err, baas.ErrNoRows) {
		return sql.ErrNoRows
	}
	return err
}
