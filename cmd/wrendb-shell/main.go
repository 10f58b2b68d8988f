/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package main is the interactive shell for WrenDB.

The shell (wsql) embeds the database engine directly: it opens the
configured storage, authenticates the user against the stored
credentials, and runs a REPL (Read-Eval-Print Loop) against the
catalog. There is no server process.

Command Types:
==============

 1. Local Commands (prefixed with \):
    - \q or \quit  : Exit the shell
    - \h or \help  : Display help information
    - \d           : List tables and views
    - \d <name>    : Describe one table or view
    - \stats       : Show plan cache statistics for this session

 2. SQL statements, terminated by a semicolon. Statements may span
    multiple lines; the continuation prompt changes until the
    terminating semicolon arrives.

Usage Examples:
===============

	Open the default data directory:
	  wsql

	Open a specific data directory:
	  wsql -d /var/lib/wrendb

	Example session:
	  wrendb> CREATE TABLE users (id INT, name TEXT);
	  CREATE TABLE OK
	  wrendb> CREATE VIEW names AS SELECT name FROM users;
	  CREATE VIEW OK
	  wrendb> SELECT * FROM names;
	  name
	  ----
	  Alice
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"wrendb/internal/auth"
	"wrendb/internal/banner"
	"wrendb/internal/config"
	"wrendb/internal/logging"
	"wrendb/internal/sql"
	"wrendb/internal/storage"
)

// allCompletions lists the words offered by tab completion.
var allCompletions = []string{
	"SELECT", "INSERT INTO", "CREATE TABLE", "CREATE VIEW",
	"CREATE OR REPLACE VIEW", "CREATE FORCE VIEW", "DROP TABLE",
	"DROP VIEW", "ALTER VIEW", "WITH", "WITH RECURSIVE",
	"CREATE USER", "ALTER USER", "DROP USER", "GRANT SELECT ON",
	"REVOKE SELECT ON",
	"\\q", "\\quit", "\\h", "\\help", "\\d", "\\stats",
}

func main() {
	var (
		configFile = flag.String("c", "", "path to configuration file")
		dataDir    = flag.String("d", "", "data directory (overrides config)")
		username   = flag.String("u", "", "username to connect as")
		noAuth     = flag.Bool("no-auth", false, "skip authentication (embedded use)")
		quiet      = flag.Bool("q", false, "suppress the startup banner")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsql: %v\n", err)
		os.Exit(1)
	}

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	// Keep log output away from the interactive prompt.
	logging.SetGlobalOutput(os.Stderr)

	if !*quiet && isTerminal() {
		banner.PrintWithConfig(cfg)
	}

	store, err := storage.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsql: open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	catalog, err := sql.NewCatalog(store, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsql: open catalog: %v\n", err)
		os.Exit(1)
	}

	var authMgr *auth.Manager
	user := auth.AdminUsername
	if !*noAuth {
		authMgr = auth.NewManager(store)
		user, err = authenticate(authMgr, *username)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wsql: %v\n", err)
			os.Exit(1)
		}
	} else if *username != "" {
		user = *username
	}

	sess := sql.NewSession(catalog, user)
	defer sess.Close()
	exec := sql.NewExecutor(catalog, authMgr)

	if err := repl(exec, sess); err != nil {
		fmt.Fprintf(os.Stderr, "wsql: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file (explicit or
// discovered), then environment, then command-line overrides.
func loadConfig(configFile, dataDir string) (*config.Config, error) {
	mgr := config.NewManager()
	if configFile != "" {
		if err := mgr.LoadFromFile(configFile); err != nil {
			return nil, err
		}
		mgr.LoadFromEnv()
	} else if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// authenticate establishes the shell user. On a fresh data directory it
// bootstraps the admin account with a generated password and prints it
// once; otherwise it prompts for credentials.
func authenticate(m *auth.Manager, username string) (string, error) {
	if !m.AdminExists() {
		password, err := m.InitializeAdminWithGeneratedPassword()
		if err != nil {
			return "", fmt.Errorf("initialize admin: %w", err)
		}
		fmt.Println("First run: created the admin account.")
		fmt.Printf("  Username: %s\n", auth.AdminUsername)
		fmt.Printf("  Password: %s\n", password)
		fmt.Println("Store this password now; it is not shown again.")
		fmt.Println()
		return auth.AdminUsername, nil
	}

	if username == "" {
		fmt.Printf("Username [%s]: ", auth.AdminUsername)
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		username = strings.TrimSpace(line)
		if username == "" {
			username = auth.AdminUsername
		}
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return "", err
	}
	if !m.Authenticate(username, password) {
		return "", fmt.Errorf("authentication failed for %q", username)
	}
	return username, nil
}

// readPassword reads a password without echo when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(password), nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wrendb_history")
}

func createCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(allCompletions))
	for _, cmd := range allCompletions {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

const (
	promptMain = "wrendb> "
	promptCont = "   ...> "
)

// repl runs the interactive loop until \q or EOF.
func repl(exec *sql.Executor, sess *sql.Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       historyFilePath(),
		AutoComplete:      createCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C discards the pending statement.
			buf.Reset()
			rl.SetPrompt(promptMain)
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "\\") {
				if quit := runLocalCommand(exec, sess, trimmed); quit {
					return nil
				}
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")
		if !strings.HasSuffix(trimmed, ";") {
			rl.SetPrompt(promptCont)
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		stmt = strings.TrimSuffix(stmt, ";")
		buf.Reset()
		rl.SetPrompt(promptMain)

		runStatement(exec, sess, stmt)
	}
}

// runStatement executes one SQL statement and prints the outcome.
func runStatement(exec *sql.Executor, sess *sql.Session, stmt string) {
	res, err := exec.Execute(sess, stmt)
	if err != nil {
		fmt.Println(banner.AnsiRed + err.Error() + banner.AnsiReset)
		return
	}
	if len(res.Columns) > 0 {
		printTable(os.Stdout, res.Columns, res.Rows)
		fmt.Printf("(%d rows)\n", len(res.Rows))
		return
	}
	fmt.Println(res.Message)
}

// runLocalCommand handles backslash commands. Returns true to exit.
func runLocalCommand(exec *sql.Executor, sess *sql.Session, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "\\q", "\\quit":
		return true
	case "\\h", "\\help":
		printHelp()
	case "\\d":
		if len(fields) > 1 {
			describeObject(sess, fields[1])
		} else {
			listObjects(sess)
		}
	case "\\stats":
		top, nested := sess.PlanCacheStats()
		printTable(os.Stdout, []string{"cache", "entries", "capacity", "hits", "misses"}, [][]string{
			{"top-level", fmt.Sprint(top.Entries), fmt.Sprint(top.Capacity), fmt.Sprint(top.Hits), fmt.Sprint(top.Misses)},
			{"nested", fmt.Sprint(nested.Entries), fmt.Sprint(nested.Capacity), fmt.Sprint(nested.Hits), fmt.Sprint(nested.Misses)},
		})
	default:
		fmt.Printf("unknown command %s (try \\h)\n", fields[0])
	}
	return false
}

func printHelp() {
	fmt.Print(`Local commands:
  \q, \quit     exit the shell
  \h, \help     show this help
  \d            list tables and views
  \d NAME       describe a table or view
  \stats        show plan cache statistics

SQL statements end with a semicolon and may span multiple lines.
`)
}

func listObjects(sess *sql.Session) {
	catalog := sess.Catalog()
	var rows [][]string
	for _, name := range catalog.TableNames() {
		rows = append(rows, []string{name, "table", ""})
	}
	for _, name := range catalog.ViewNames() {
		v, ok := catalog.GetView(name)
		if !ok {
			continue
		}
		status := "valid"
		if !v.IsValid() {
			status = "invalid"
		}
		rows = append(rows, []string{name, "view", status})
	}
	printTable(os.Stdout, []string{"name", "type", "status"}, rows)
}

func describeObject(sess *sql.Session, name string) {
	catalog := sess.Catalog()
	source, ok := catalog.FindDataSource(name)
	if !ok {
		fmt.Printf("no table or view named %q\n", name)
		return
	}
	var rows [][]string
	for _, col := range source.Columns() {
		rows = append(rows, []string{col.Name, string(col.Type)})
	}
	printTable(os.Stdout, []string{"column", "type"}, rows)
	if v, ok := source.(*sql.View); ok {
		fmt.Println()
		fmt.Println(v.CreateSQL())
		if !v.IsValid() {
			fmt.Println(banner.AnsiYellow + "view is invalid: " + v.InvalidReason().Error() + banner.AnsiReset)
		}
	}
}

// printTable renders rows with columns padded to their widest value.
// NULLs (empty strings) render as "NULL".
func printTable(w io.Writer, columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	display := make([][]string, len(rows))
	for r, row := range rows {
		display[r] = make([]string, len(row))
		for i, v := range row {
			if i >= len(widths) {
				break
			}
			if v == "" {
				v = "NULL"
			}
			display[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(pad(c, widths[i]))
	}
	b.WriteString("\n")
	for i := range columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", widths[i]))
	}
	b.WriteString("\n")
	for _, row := range display {
		for i, v := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(pad(v, widths[i]))
		}
		b.WriteString("\n")
	}
	fmt.Fprint(w, b.String())
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
