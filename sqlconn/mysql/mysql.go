// Package mysql registers the MySQL database/sql driver and builds its DSN.
package mysql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/sqldef/sqldict/sqlconn"
)

// DSN builds a go-sql-driver/mysql DSN from a sqlconn.Config, the same
// way the schema-diffing driver layer composes one from its Config.
func DSN(config sqlconn.Config) string {
	c := mysqldriver.NewConfig()
	c.User = config.User
	c.Passwd = config.Password
	c.DBName = config.DbName
	c.TLSConfig = config.SslMode
	if config.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		c.Net = "unix"
		c.Addr = config.Socket
	}
	return c.FormatDSN()
}
