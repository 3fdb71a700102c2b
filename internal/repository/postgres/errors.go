package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/lib/pq"

	"github.com/s21platform/chat-sync/internal/transport"
)

const (
	codeInsufficientPrivilege = "42501"
	codeInvalidTextRep        = "22P02"
	codeForeignKeyViolation   = "23503"
	codeCheckViolation        = "23514"
	codeStringTooLong         = "22001"

	classConnectionException  = "08"
	classOperatorIntervention = "57"
)

// mapError converts driver failures into transport errors.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var te *transport.Error
	if errors.As(err, &te) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeInsufficientPrivilege:
			return transport.NewError(transport.KindPermissionDenied, op, err)
		case codeInvalidTextRep, codeForeignKeyViolation:
			return transport.NewError(transport.KindNotFound, op, err)
		case codeCheckViolation, codeStringTooLong:
			return transport.NewError(transport.KindInvalidInput, op, err)
		}
		switch pqErr.Code.Class() {
		case classConnectionException, classOperatorIntervention:
			return transport.NewError(transport.KindNetworkUnavailable, op, err)
		}
		return transport.NewError(transport.KindUnknown, op, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return transport.NewError(transport.KindNotFound, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return transport.NewError(transport.KindNetworkUnavailable, op, err)
	}

	return transport.NewError(transport.KindUnknown, op, err)
}
