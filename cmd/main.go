// Command holdings maintains security positions derived from buy/sell
// trades and bulk broker imports.
//
// Usage:
//
//	holdings [-config config.yaml] <command> [flags]
//
// Commands:
//
//	buy           record a BUY trade
//	sell          sell shares out of the held position
//	import        merge a broker CSV feed into the position book
//	export        write the position book as CSV to stdout
//	positions     list open positions
//	trades        list trade history, newest first
//	summary       print portfolio totals
//	delete-trade  remove a trade record by id (position stays untouched)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/holdings/config"
	"github.com/quantfold/holdings/internal/domain"
	"github.com/quantfold/holdings/internal/services"
	"github.com/quantfold/holdings/internal/storage/ledger"
	"github.com/quantfold/holdings/internal/storage/positions"
	"github.com/quantfold/holdings/pkg/retrier"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: holdings [-config file] buy|sell|import|export|positions|trades|summary|delete-trade")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ledgerStore, err := ledger.NewWALStore(cfg.LedgerDir, cfg.SyncWrites)
	if err != nil {
		log.Fatal(err)
	}
	defer ledgerStore.Close()

	positionStore, err := positions.NewWALStore(cfg.PositionsDir, cfg.SyncWrites)
	if err != nil {
		log.Fatal(err)
	}
	defer positionStore.Close()

	engine := services.NewReconciler(logger, ledgerStore, positionStore)
	importer := services.NewImporter(logger, engine)

	command := flag.Arg(0)
	args := flag.Args()[1:]

	if err := run(command, args, engine, importer); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(command string, args []string, engine *services.Reconciler, importer *services.Importer) error {
	switch command {
	case "buy":
		return runBuy(args, engine)
	case "sell":
		return runSell(args, engine)
	case "import":
		return runImport(args, importer)
	case "export":
		return importer.Export(os.Stdout)
	case "positions":
		return runPositions(engine)
	case "trades":
		return runTrades(engine)
	case "summary":
		return runSummary(engine)
	case "delete-trade":
		return runDeleteTrade(args, engine)
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

// withStoreRetry re-runs fn with backoff, but only while it keeps failing
// on the stores; validation and business rejections surface immediately.
func withStoreRetry(fn func() (*domain.TradeRecord, error)) (*domain.TradeRecord, error) {
	trade, err := fn()
	if err == nil || !errors.Is(err, domain.ErrStoreFailure) {
		return trade, err
	}

	return retrier.DoWithData(retrier.New(), context.Background(), func(context.Context) (*domain.TradeRecord, error) {
		return fn()
	})
}

func runBuy(args []string, engine *services.Reconciler) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	symbol := fs.String("symbol", "", "instrument symbol")
	name := fs.String("name", "", "display name")
	quantity := fs.Int64("quantity", 0, "number of shares")
	priceStr := fs.String("price", "", "price per share")
	if err := fs.Parse(args); err != nil {
		return err
	}

	price, err := decimal.NewFromString(*priceStr)
	if err != nil {
		return errors.Wrap(err, "invalid price")
	}

	now := time.Now()
	trade, err := withStoreRetry(func() (*domain.TradeRecord, error) {
		return engine.RecordTrade(domain.TradeIntent{
			Symbol:   *symbol,
			Name:     *name,
			Side:     domain.SideBuy,
			Quantity: *quantity,
			Price:    price,
			Total:    domain.RoundMoney(price.Mul(decimal.NewFromInt(*quantity))),
			Date:     now.Format("2006-01-02"),
			Time:     now.Format("15:04:05"),
		})
	})
	if err != nil {
		return err
	}

	fmt.Println("recorded", trade.String())
	return nil
}

func runSell(args []string, engine *services.Reconciler) error {
	fs := flag.NewFlagSet("sell", flag.ExitOnError)
	symbol := fs.String("symbol", "", "instrument symbol")
	quantity := fs.Int64("quantity", 0, "number of shares")
	priceStr := fs.String("price", "", "price per share")
	if err := fs.Parse(args); err != nil {
		return err
	}

	price, err := decimal.NewFromString(*priceStr)
	if err != nil {
		return errors.Wrap(err, "invalid price")
	}

	trade, err := withStoreRetry(func() (*domain.TradeRecord, error) {
		return engine.SellFromPosition(*symbol, *quantity, price)
	})
	if err != nil {
		return err
	}

	fmt.Println("recorded", trade.String())
	return nil
}

func runImport(args []string, importer *services.Importer) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "path to the CSV feed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return errors.Wrap(err, "open feed")
	}
	defer f.Close()

	report := importer.Import(f)

	fmt.Println(report.Message)
	for _, rowErr := range report.Errors {
		fmt.Println(" ", rowErr.String())
	}

	if !report.Success {
		return errors.New("import aborted")
	}
	return nil
}

func runPositions(engine *services.Reconciler) error {
	book, err := engine.Positions()
	if err != nil {
		return err
	}

	for i := range book {
		pos := &book[i]
		fmt.Printf("%-14s qty %6d  avg %10s  value %12s\n",
			pos.Symbol, pos.Quantity, pos.AveragePrice.StringFixed(2), pos.CurrentValue.StringFixed(2))
	}
	return nil
}

func runTrades(engine *services.Reconciler) error {
	trades, err := engine.Trades()
	if err != nil {
		return err
	}

	for i := range trades {
		fmt.Println(trades[i].String())
	}
	return nil
}

func runSummary(engine *services.Reconciler) error {
	s, err := engine.Summary()
	if err != nil {
		return err
	}

	fmt.Printf("positions: %d\n", s.Positions)
	fmt.Printf("invested:  %s\n", s.TotalInvested.StringFixed(2))
	fmt.Printf("value:     %s\n", s.CurrentValue.StringFixed(2))
	fmt.Printf("p/l:       %s (%s%%)\n", s.ProfitLoss.StringFixed(2), s.ProfitLossPct.StringFixed(2))
	fmt.Printf("trades:    %d buys, %d sells\n", s.BuyTrades, s.SellTrades)
	return nil
}

func runDeleteTrade(args []string, engine *services.Reconciler) error {
	fs := flag.NewFlagSet("delete-trade", flag.ExitOnError)
	id := fs.Uint64("id", 0, "trade record id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ok, err := engine.DeleteTrade(*id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("no trade with id %d", *id)
	}

	fmt.Println("deleted trade", *id)
	return nil
}
