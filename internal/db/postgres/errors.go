package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Postgres error classes that mean the server or pool cannot serve us right now.
const (
	classConnectionException  pq.ErrorClass = "08"
	classInsufficientResource pq.ErrorClass = "53"
	classOperatorIntervention pq.ErrorClass = "57"
)

// pgvector raises data_exception (22000) with these texts on length mismatch.
var vectorDimensionMessages = []string{
	"different vector dimensions",
	"dimensions, not",
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case classConnectionException, classInsufficientResource, classOperatorIntervention:
			return true
		}
	}
	return false
}

// isVectorDimensionError reports a pgvector length mismatch between the
// query vector and the stored column.
func isVectorDimensionError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "22000" {
		return false
	}
	for _, m := range vectorDimensionMessages {
		if strings.Contains(pqErr.Message, m) {
			return true
		}
	}
	return false
}
