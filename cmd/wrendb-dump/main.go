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
Package main is the WrenDB dump utility (wdump).

wdump exports a WrenDB data directory to a portable format for backup
and migration, and restores such dumps. SQL dumps regenerate every
object from its catalog definition: tables as CREATE TABLE plus
INSERTs, views as the exact CREATE FORCE VIEW statement the engine
itself produces, so a restored view keeps its query text, column
templates, and comment.

Views are emitted with FORCE so a dump restores cleanly regardless of
statement order; a trailing ALTER VIEW ... RECOMPILE per view resolves
any forward references.

Usage:

	wdump -d <data_dir> [options]

Options:

	-d <path>       Data directory path (required)
	-o <file>       Output file path (default: stdout)
	-f <format>     Output format: sql, csv, json (default: sql)
	-t <tables>     Comma-separated list of tables to dump (default: all)
	--schema-only   Dump schema only, no data
	--data-only     Dump data only, no schema
	-z              Compress output with gzip
	--import <file> Import statements from a SQL dump file

Environment Variables:

	WRENDB_ENCRYPTION_PASSPHRASE  Passphrase for encrypted data directories

Examples:

	# Full SQL dump
	wdump -d ./data -o backup.sql

	# Compressed dump
	wdump -d ./data -z -o backup.sql.gz

	# One table as CSV
	wdump -d ./data -t users -f csv -o users.csv

	# Restore
	wdump -d ./data --import backup.sql
*/
package main

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"wrendb/internal/auth"
	"wrendb/internal/banner"
	"wrendb/internal/config"
	"wrendb/internal/logging"
	"wrendb/internal/sql"
	"wrendb/internal/storage"
)

type options struct {
	dataDir    string
	output     string
	format     string
	tables     string
	schemaOnly bool
	dataOnly   bool
	compress   bool
	importFile string
}

func main() {
	var opts options
	flag.StringVar(&opts.dataDir, "d", "", "data directory path (required)")
	flag.StringVar(&opts.output, "o", "", "output file (default: stdout)")
	flag.StringVar(&opts.format, "f", "sql", "output format: sql, csv, json")
	flag.StringVar(&opts.tables, "t", "", "comma-separated tables to dump (default: all)")
	flag.BoolVar(&opts.schemaOnly, "schema-only", false, "dump schema only")
	flag.BoolVar(&opts.dataOnly, "data-only", false, "dump data only")
	flag.BoolVar(&opts.compress, "z", false, "gzip the output")
	flag.StringVar(&opts.importFile, "import", "", "import statements from a SQL dump file")
	flag.Parse()

	if opts.dataDir == "" {
		fmt.Fprintln(os.Stderr, "wdump: -d <data_dir> is required")
		flag.Usage()
		os.Exit(1)
	}
	if opts.schemaOnly && opts.dataOnly {
		fmt.Fprintln(os.Stderr, "wdump: --schema-only and --data-only are mutually exclusive")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "wdump: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// Dumps are non-interactive; keep logs off the data stream.
	logging.SetGlobalOutput(os.Stderr)
	logging.SetGlobalLevel(logging.WARN)

	mgr := config.NewManager()
	mgr.LoadFromEnv()
	cfg := mgr.Get()
	cfg.DataDir = opts.dataDir

	store, err := storage.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	catalog, err := sql.NewCatalog(store, cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	sess := sql.NewSession(catalog, auth.AdminUsername)
	defer sess.Close()

	if opts.importFile != "" {
		return importDump(catalog, sess, opts.importFile)
	}

	out, closeOut, err := openOutput(opts)
	if err != nil {
		return err
	}
	defer closeOut()

	tables, views, err := selectObjects(catalog, opts.tables)
	if err != nil {
		return err
	}

	switch opts.format {
	case "sql":
		return dumpSQL(out, sess, tables, views, opts)
	case "csv":
		return dumpCSV(out, sess, tables, opts)
	case "json":
		return dumpJSON(out, sess, tables, views, opts)
	default:
		return fmt.Errorf("unknown format %q (want sql, csv, or json)", opts.format)
	}
}

// openOutput resolves the destination writer, layering gzip when asked.
func openOutput(opts options) (io.Writer, func(), error) {
	var out io.Writer = os.Stdout
	closers := []io.Closer{}
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		out = f
	}
	if opts.compress {
		zw := gzip.NewWriter(out)
		closers = append([]io.Closer{zw}, closers...)
		out = zw
	}
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return out, closeAll, nil
}

// selectObjects resolves the -t filter. With a filter only the named
// tables are dumped and views are skipped; without it everything is.
func selectObjects(catalog *sql.Catalog, filter string) ([]*sql.Table, []*sql.View, error) {
	if filter != "" {
		var tables []*sql.Table
		for _, name := range strings.Split(filter, ",") {
			name = strings.TrimSpace(name)
			t, ok := catalog.GetTable(name)
			if !ok {
				return nil, nil, fmt.Errorf("no table named %q", name)
			}
			tables = append(tables, t)
		}
		return tables, nil, nil
	}

	var tables []*sql.Table
	for _, name := range catalog.TableNames() {
		if t, ok := catalog.GetTable(name); ok {
			tables = append(tables, t)
		}
	}
	var views []*sql.View
	for _, name := range catalog.ViewNames() {
		if v, ok := catalog.GetView(name); ok {
			views = append(views, v)
		}
	}
	// Creation order is a valid restore order for view-over-view
	// chains built without OR REPLACE; FORCE covers the rest.
	sort.Slice(views, func(i, j int) bool { return views[i].ObjectID() < views[j].ObjectID() })
	return tables, views, nil
}

func dumpSQL(out io.Writer, sess *sql.Session, tables []*sql.Table, views []*sql.View, opts options) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "-- WrenDB dump (wdump v%s)\n", banner.Version)
	fmt.Fprintf(w, "-- Created: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	for _, t := range tables {
		if !opts.dataOnly {
			fmt.Fprintf(w, "%s;\n", t.DropSQL())
			fmt.Fprintf(w, "%s;\n", t.CreateSQL())
		}
		if !opts.schemaOnly {
			rows, err := t.ReadRows(sess)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Fprintf(w, "%s;\n", t.InsertSQL(row))
			}
		}
		fmt.Fprintln(w)
	}

	if !opts.dataOnly {
		for _, v := range views {
			fmt.Fprintf(w, "%s;\n", v.DropSQL())
			fmt.Fprintf(w, "%s;\n", v.CreateSQL())
		}
		if len(views) > 0 {
			fmt.Fprintln(w)
			// Resolve forward references between views.
			for _, v := range views {
				fmt.Fprintf(w, "ALTER VIEW %s RECOMPILE;\n", sql.QuoteIdent(v.Name()))
			}
		}
	}
	return w.Flush()
}

func dumpCSV(out io.Writer, sess *sql.Session, tables []*sql.Table, opts options) error {
	if len(tables) != 1 {
		return fmt.Errorf("csv format dumps exactly one table; use -t <name>")
	}
	t := tables[0]
	w := csv.NewWriter(out)
	if !opts.dataOnly {
		header := make([]string, len(t.Columns()))
		for i, col := range t.Columns() {
			header[i] = col.Name
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if !opts.schemaOnly {
		rows, err := t.ReadRows(sess)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// JSON dump document shapes.
type jsonColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonTable struct {
	Name    string       `json:"name"`
	Columns []jsonColumn `json:"columns"`
	Rows    [][]string   `json:"rows,omitempty"`
}

type jsonView struct {
	Name      string `json:"name"`
	Query     string `json:"query"`
	CreateSQL string `json:"create_sql"`
	Valid     bool   `json:"valid"`
}

type jsonDump struct {
	Version string      `json:"version"`
	Created string      `json:"created"`
	Tables  []jsonTable `json:"tables"`
	Views   []jsonView  `json:"views,omitempty"`
}

func dumpJSON(out io.Writer, sess *sql.Session, tables []*sql.Table, views []*sql.View, opts options) error {
	doc := jsonDump{
		Version: banner.Version,
		Created: time.Now().UTC().Format(time.RFC3339),
	}
	for _, t := range tables {
		jt := jsonTable{Name: t.Name()}
		for _, col := range t.Columns() {
			jt.Columns = append(jt.Columns, jsonColumn{Name: col.Name, Type: string(col.Type)})
		}
		if !opts.schemaOnly {
			rows, err := t.ReadRows(sess)
			if err != nil {
				return err
			}
			jt.Rows = rows
		}
		doc.Tables = append(doc.Tables, jt)
	}
	if !opts.dataOnly {
		for _, v := range views {
			doc.Views = append(doc.Views, jsonView{
				Name:      v.Name(),
				Query:     v.QuerySQL(),
				CreateSQL: v.CreateSQL(),
				Valid:     v.IsValid(),
			})
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// importDump replays the statements of a SQL dump file. Statements are
// separated by a semicolon at end of line; -- comment lines are
// skipped. Errors abort the import so a partial restore is visible.
func importDump(catalog *sql.Catalog, sess *sql.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		reader = zr
	}

	exec := sql.NewExecutor(catalog, nil)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var buf strings.Builder
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(buf.String()), ";")
		buf.Reset()
		if _, err := exec.Execute(sess, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "imported %d statements\n", count)
	return nil
}
