// Command sqldictd is a small REPL-style tool that drives a dict.Dict
// handle against a live DSN: lookup, set, inc, unset, iterate, and
// expire-scan, one command per line of stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/sqldef/sqldict/dict"
	"github.com/sqldef/sqldict/dictmap"
	"github.com/sqldef/sqldict/iterate"
	_ "github.com/sqldef/sqldict/sqlconn/mssql"
	_ "github.com/sqldef/sqldict/sqlconn/mysql"
	_ "github.com/sqldef/sqldict/sqlconn/postgres"
	_ "github.com/sqldef/sqldict/sqlconn/sqlite3"
	"github.com/sqldef/sqldict/util"
)

var version string

type options struct {
	DbType       string `long:"type" description:"mysql, postgres, sqlserver, sqlite3" default:"mysql"`
	User         string `short:"u" long:"user" description:"Database user" default:"root"`
	Password     string `short:"p" long:"password" description:"Database password, overridden by $SQLDICT_PWD"`
	Prompt       bool   `long:"password-prompt" description:"Force a password prompt"`
	Host         string `short:"h" long:"host" description:"Database host" default:"127.0.0.1"`
	Port         int    `short:"P" long:"port" description:"Database port" default:"3306"`
	DbName       string `long:"dbname" description:"Database/file name" required:"true"`
	MapsFile     string `long:"maps" description:"YAML file of dictionary map definitions" required:"true"`
	TablePrefix  string `long:"table-prefix" description:"Prefix applied to every qualified table name"`
	QueryTimeout int    `long:"query-timeout" description:"Default query timeout in seconds" default:"30"`
	Verbose      bool   `long:"verbose" description:"Default LOG_LEVEL to debug instead of warn"`
	Version      bool   `long:"version" description:"Show this version"`
}

func parseOptions(args []string) (*options, []string) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		os.Exit(1)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	return &opts, rest
}

func dsnFor(opts *options) string {
	switch opts.DbType {
	case "sqlite3":
		return opts.DbName
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", opts.User, opts.Password, opts.Host, opts.Port, opts.DbName)
	case "sqlserver":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", opts.User, opts.Password, opts.Host, opts.Port, opts.DbName)
	default: // mysql
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", opts.User, opts.Password, opts.Host, opts.Port, opts.DbName)
	}
}

func main() {
	opts, _ := parseOptions(os.Args[1:])

	if password, ok := os.LookupEnv("SQLDICT_PWD"); ok {
		opts.Password = password
	}
	if opts.Prompt {
		fmt.Fprint(os.Stderr, "Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintln(os.Stderr)
		opts.Password = string(pass)
	}

	if _, ok := os.LookupEnv("LOG_LEVEL"); !ok {
		level := "warn"
		if opts.Verbose {
			level = "debug"
		}
		os.Setenv("LOG_LEVEL", level)
	}
	util.InitSlog()

	maps, err := dictmap.LoadMaps(opts.MapsFile)
	if err != nil {
		log.Fatal(err)
	}

	d, err := dict.Open(opts.DbType, dsnFor(opts), maps, dict.Settings{
		QueryTimeout: time.Duration(opts.QueryTimeout) * time.Second,
		TablePrefix:  opts.TablePrefix,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	runREPL(d)
}

// runREPL reads one command per line from stdin:
//
//	lookup <key>
//	set <key> <value>
//	inc <key> <delta>
//	unset <key>
//	iterate <path> [recurse]
//	expire-scan
func runREPL(d *dict.Dict) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "lookup":
			runLookup(ctx, d, fields)
		case "set":
			runSet(ctx, d, fields)
		case "inc":
			runInc(ctx, d, fields)
		case "unset":
			runUnset(ctx, d, fields)
		case "iterate":
			runIterate(ctx, d, fields)
		case "expire-scan":
			runExpireScan(ctx, d)
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", fields[0])
		}
	}
}

func runLookup(ctx context.Context, d *dict.Dict, fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(os.Stderr, "usage: lookup <key>")
		return
	}
	result, err := d.Lookup(ctx, dict.OpContext{Private: dictmap.IsPrivate(fields[1])}, fields[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	if !result.Found {
		fmt.Println("not found")
		return
	}
	fmt.Println(strings.Join(result.Values, "\t"))
}

func runSet(ctx context.Context, d *dict.Dict, fields []string) {
	if len(fields) != 3 {
		fmt.Fprintln(os.Stderr, "usage: set <key> <value>")
		return
	}
	matchAndCommit(ctx, d, fields[1], func(tx txSetter, m dictmap.Map, bound []string) error {
		return tx.Set(ctx, m, bound, fields[2])
	})
}

func runInc(ctx context.Context, d *dict.Dict, fields []string) {
	if len(fields) != 3 {
		fmt.Fprintln(os.Stderr, "usage: inc <key> <delta>")
		return
	}
	delta, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad delta: %s\n", err)
		return
	}
	matchAndCommit(ctx, d, fields[1], func(tx txSetter, m dictmap.Map, bound []string) error {
		return tx.AtomicInc(ctx, m, bound, delta)
	})
}

func runUnset(ctx context.Context, d *dict.Dict, fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(os.Stderr, "usage: unset <key>")
		return
	}
	matchAndCommit(ctx, d, fields[1], func(tx txSetter, m dictmap.Map, bound []string) error {
		return tx.Unset(ctx, m, bound)
	})
}

func runIterate(ctx context.Context, d *dict.Dict, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(os.Stderr, "usage: iterate <path> [recurse]")
		return
	}
	flags := iterate.Flags{Recurse: len(fields) > 2 && fields[2] == "recurse"}
	it := d.IterateInit(dict.OpContext{Private: dictmap.IsPrivate(fields[1])}, fields[1], flags)
	defer it.Destroy()
	for {
		key, values, ok, err := it.Next(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			return
		}
		if !ok {
			return
		}
		fmt.Printf("%s\t%s\n", key, strings.Join(values, "\t"))
	}
}

// txSetter is the subset of *txn.Tx the write commands need; it lets
// matchAndCommit stay agnostic of which write op the caller is batching.
type txSetter interface {
	Set(ctx context.Context, m dictmap.Map, bound []string, valueText string) error
	AtomicInc(ctx context.Context, m dictmap.Map, bound []string, delta int64) error
	Unset(ctx context.Context, m dictmap.Map, bound []string) error
}

// matchAndCommit selects the map for key, opens a one-op transaction,
// applies fn, and commits it, printing the commit outcome or any error.
func matchAndCommit(ctx context.Context, d *dict.Dict, key string, fn func(tx txSetter, m dictmap.Map, bound []string) error) {
	match, found, err := dictmap.SelectExact(d.Maps(), key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	if !found {
		fmt.Fprintln(os.Stderr, "no map matches key")
		return
	}

	tx, err := d.NewTransaction(ctx, dict.OpContext{Private: dictmap.IsPrivate(key)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	if err := fn(tx, match.Map, match.Values); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	outcome, err := tx.Commit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	fmt.Println(outcome)
}

func runExpireScan(ctx context.Context, d *dict.Dict) {
	scanned, err := d.ExpireScan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return
	}
	fmt.Println(scanned)
}
