// Command sqlshell is the interactive REPL front end for the query
// engine: a "SQL > " prompt that parses, validates, executes, and
// caches each statement, plus a handful of session commands.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/colsql/queryserver/internal/cache"
	"github.com/colsql/queryserver/internal/catalog"
	"github.com/colsql/queryserver/internal/config"
	"github.com/colsql/queryserver/internal/executor"
	"github.com/colsql/queryserver/internal/parser"
	"github.com/colsql/queryserver/internal/plan"
	"github.com/colsql/queryserver/internal/queryerr"
	"github.com/colsql/queryserver/internal/table"
	"github.com/colsql/queryserver/internal/validator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine's YAML config file")
	flag.Parse()

	level := zap.NewAtomicLevelAt(zapcore.FatalLevel)
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	log, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := config.NewStore(*configPath, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	cfg := store.Get()

	var cat catalog.Catalog
	switch cfg.CatalogBackend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to open postgres catalog backend:", err)
			os.Exit(1)
		}
		cat = catalog.NewPostgresCatalog(db, cfg.PostgresSchemas)
	default:
		cat = catalog.NewParquetCatalog(cfg.DataDir)
	}

	resultCache := cache.New(cfg.RedisAddr, cfg.CacheExpirySeconds)

	shell := &shell{cfg: store, cat: cat, cache: resultCache, log: log, level: level}
	shell.run()
}

type shell struct {
	cfg   *config.Store
	cat   catalog.Catalog
	cache *cache.Store
	log   *zap.Logger
	level zap.AtomicLevel
}

func (s *shell) run() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("SQL > ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if upper == "EXIT" || upper == "QUIT" {
			os.Exit(0)
		}

		if s.handleSessionCommand(upper) {
			continue
		}
		if handled, err := s.handleDescCommand(upper); err != nil {
			fmt.Println("Error:", err)
			continue
		} else if handled {
			continue
		}

		s.runQuery(line)
	}
}

func (s *shell) handleSessionCommand(upper string) bool {
	switch {
	case strings.HasPrefix(upper, "SET TRACE LEVEL"):
		parts := strings.Fields(upper)
		if len(parts) != 4 {
			fmt.Println("invalid session setting")
			return true
		}
		switch parts[3] {
		case "DEBUG":
			s.level.SetLevel(zapcore.DebugLevel)
		case "INFO":
			s.level.SetLevel(zapcore.InfoLevel)
		case "WARN", "WARNING":
			s.level.SetLevel(zapcore.WarnLevel)
		case "ERROR":
			s.level.SetLevel(zapcore.ErrorLevel)
		default:
			fmt.Println("invalid session setting")
			return true
		}
		fmt.Println("Trace level set.")
		return true
	case upper == "SET TRACE OFF":
		s.level.SetLevel(zapcore.FatalLevel + 1)
		fmt.Println("Tracing disabled.")
		return true
	case upper == "SET CACHE CLEAR":
		if err := s.cache.FlushAll(context.Background()); err != nil {
			fmt.Println("cache error:", err)
			return true
		}
		fmt.Println("Cache cleared.")
		return true
	}
	return false
}

func (s *shell) handleDescCommand(upper string) (bool, error) {
	upper = strings.TrimSuffix(upper, ";")
	if !strings.HasPrefix(upper, "DESC") {
		return false, nil
	}
	parts := strings.Fields(upper)
	if len(parts) != 2 {
		return true, fmt.Errorf("usage: DESC <table>")
	}
	tableName := strings.ToLower(parts[1])
	_, cols, err := s.cat.Schema(context.Background(), tableName)
	if err != nil {
		return true, err
	}
	for _, col := range cols {
		fmt.Println(col)
	}
	return true, nil
}

func (s *shell) runQuery(sql string) {
	ctx := context.Background()

	if cached, ok, err := s.cache.Get(ctx, sql); err == nil && ok {
		printResult(cached)
		return
	}

	p, err := parseAndValidate(ctx, sql, s.cat)
	if err != nil {
		fmt.Println("Error:", describeError(err))
		return
	}

	cfg := s.cfg.Get()
	result, err := executor.Execute(ctx, p, cfg.DataDir, cfg, table.Load)
	if err != nil {
		fmt.Println("Error:", describeError(err))
		return
	}

	if _, err := s.cache.Put(ctx, sql, result); err != nil {
		s.log.Warn("cache write failed", zap.Error(err))
	}

	printResult(result)
}

func parseAndValidate(ctx context.Context, sql string, cat catalog.Catalog) (*plan.Plan, error) {
	p, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(ctx, p, cat); err != nil {
		return nil, err
	}
	return p, nil
}

func describeError(err error) string {
	if qe, ok := err.(*queryerr.QueryError); ok {
		return qe.Message
	}
	return err.Error()
}

func printResult(t *table.Table) {
	if t.RowCount == 0 {
		fmt.Println("\nno rows selected.\n")
		return
	}
	names := t.ColumnNames()
	fmt.Println()
	fmt.Println(strings.Join(names, " "))
	for i := 0; i < t.RowCount; i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for c, v := range row {
			cells[c] = v.GoString()
		}
		fmt.Println(strings.Join(cells, " "))
	}
	fmt.Printf("\n %d rows selected.\n\n", t.RowCount)
}
