package core

// # Error Codes Reference
//
// Every error leaving the core is turned into a UserMessage with a code that
// support staff can look up here. Category sentinels are checked first
// (errors.Is); driver errors are then matched by message pattern.
//
//	VAL001 - Invalid request: a filter, sort or page parameter was rejected
//	VAL002 - Invalid date: a date value could not be parsed
//	VAL003 - Required field: a required field is empty
//	NF001  - Not found: the record does not exist
//	CON001 - Conflict: the record changed or was removed since it was read
//	DB001  - Duplicate key: a record with the same unique value exists
//	DB002  - Connection: unable to reach the database
//	DB003  - Timeout: the operation timed out
//	DB000  - Store failure: any other persistence error
//	FILE001 - File too large
//	FILE002 - Invalid file type (only .csv is accepted)
//	FILE003 - No file provided
//	FILE004 - Nothing imported
//	FILE005 - Import busy: too many imports running
//	ERR000 - Unknown error: check application logs
//
// Patterns are matched case-insensitively using strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgRequiredField = UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in payroll number, forenames and surname",
		Code:    "VAL003",
	}
	msgInvalidDate = UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, or DD/M/YYYY in import files",
		Code:    "VAL002",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request was rejected",
		Action:  "Check field names, operators and paging values",
		Code:    "VAL001",
	}
	msgNotFound = UserMessage{
		Message: "Record not found",
		Action:  "Refresh the list; the record may have been deleted",
		Code:    "NF001",
	}
	msgConflict = UserMessage{
		Message: "The record was changed by someone else",
		Action:  "Reload the record and apply your changes again",
		Code:    "CON001",
	}
	msgStore = UserMessage{
		Message: "The database rejected the change",
		Action:  "Please try again or contact support",
		Code:    "DB000",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this payroll number already exists",
			Action:  "Use a different payroll number or edit the existing record",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this payroll number already exists",
			Action:  "Use a different payroll number or edit the existing record",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Only .csv files can be imported",
			Action:  "Export the sheet as CSV and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE003",
		},
	},
	{
		pattern: "nothing imported",
		msg: UserMessage{
			Message: "No rows were imported",
			Action:  "Check the file has a header and 11 columns per row",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Wait a moment and upload the file again",
			Code:    "FILE005",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		if strings.Contains(verr.Message, "required") {
			return msgRequiredField
		}
		if strings.Contains(verr.Message, "invalid date") {
			return msgInvalidDate
		}
		return msgInvalidRequest
	case errors.Is(err, ErrValidation):
		return msgInvalidRequest
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrConcurrency):
		return msgConflict
	case errors.Is(err, context.DeadlineExceeded):
		return errorPatterns[3].msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrStore) {
		return msgStore
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
