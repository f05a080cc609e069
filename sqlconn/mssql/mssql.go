// Package mssql registers the SQL Server database/sql driver and builds
// its DSN.
package mssql

import (
	"fmt"
	"net/url"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/sqldef/sqldict/sqlconn"
)

// DSN builds a denisenkom/go-mssqldb connection URL from a sqlconn.Config.
func DSN(config sqlconn.Config) string {
	query := url.Values{}
	query.Add("database", config.DbName)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
