// Package dynamodb implements the repository ports on a single
// DynamoDB table. Items share one key schema:
//
//	transactions  PK=TXN#<id>    SK=METADATA  GSI1PK=STATUS#<status>
//	tasks         PK=TASK#<id>   SK=METADATA  GSI1PK=TXN#<id>  GSI2PK=USER#<assignee>
//	messages      PK=TASK#<id>   SK=MSG#<ulid>
//	documents     PK=DOC#<id>    SK=METADATA  GSI1PK=TXN#<id>  GSI2PK=DOCSTATUS#<status>
//
// Message sort keys are ULIDs, so a task's log queries back in insert
// order without a separate timestamp index.
package dynamodb

import "errors"

const (
	skMetadata = "METADATA"

	pkTransactionPrefix = "TXN#"
	pkTaskPrefix        = "TASK#"
	pkDocumentPrefix    = "DOC#"
	skMessagePrefix     = "MSG#"

	gsiStatusPrefix    = "STATUS#"
	gsiDocStatusPrefix = "DOCSTATUS#"
	gsiUserPrefix      = "USER#"
)

// asType reports whether err's chain contains the target error type.
// The name avoids shadowing the app error package.
func asType(err error, target any) bool {
	return errors.As(err, target)
}
