package mssql

import (
	"fmt"
	"strings"

	mssqldriver "github.com/microsoft/go-mssqldb"
)

// quoteName mirrors SQL Server's QUOTENAME: square brackets with ] escaped as ]].
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// convertValue turns driver values into JSON-friendly ones. go-mssqldb
// returns text, decimal and money columns as []byte and GUIDs in SQL
// Server's mixed-endian byte order.
func convertValue(val any, dbType string) any {
	b, ok := val.([]byte)
	if !ok {
		return val
	}

	switch {
	case strings.EqualFold(dbType, "UNIQUEIDENTIFIER"):
		var id mssqldriver.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
		return b
	case isStringType(dbType), isDecimalType(dbType):
		return string(b)
	default:
		return b
	}
}

// isStringType returns true if the type is a string type in SQL Server.
func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "XML":
		return true
	}
	return false
}

// isDecimalType returns true for exact numeric types the driver returns as text.
func isDecimalType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
