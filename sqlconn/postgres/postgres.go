// Package postgres registers the PostgreSQL database/sql driver and
// builds its DSN.
package postgres

import (
	"fmt"

	_ "github.com/lib/pq"

	"github.com/sqldef/sqldict/sqlconn"
)

// DSN builds a lib/pq connection string from a sqlconn.Config. A socket
// path is passed as a host= query option since postgres://user:@/dbname
// with a URL-escaped socket path confuses the URL parser.
func DSN(config sqlconn.Config) string {
	host := fmt.Sprintf("%s:%d", config.Host, config.Port)
	var options string
	if config.Socket != "" {
		host = ""
		options = fmt.Sprintf("?host=%s", config.Socket)
	}
	if config.SslMode != "" {
		if options == "" {
			options = "?sslmode=" + config.SslMode
		} else {
			options += "&sslmode=" + config.SslMode
		}
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s%s", config.User, config.Password, host, config.DbName, options)
}
