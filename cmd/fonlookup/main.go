package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hausnetz/fonwatch/internal/config"
	"github.com/hausnetz/fonwatch/internal/logger"
	"github.com/hausnetz/fonwatch/internal/phonebook"
	"github.com/hausnetz/fonwatch/pkg/httpclient"
	"github.com/hausnetz/fonwatch/pkg/phonebooks"
)

// fonlookup fetches all configured phonebooks once and resolves the
// numbers given as arguments.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fonlookup failed: %v\n", err)
		os.Exit(1)
	}
}

func run(numbers []string) error {
	if len(numbers) == 0 {
		return fmt.Errorf("usage: fonlookup NUMBER [NUMBER...]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceReg, err := phonebooks.LoadRegistry(cfg.PhonebooksFile)
	if err != nil {
		return fmt.Errorf("load phonebooks registry: %w", err)
	}

	client := httpclient.NewRestyClient(cfg.FetchTimeout)
	fetcherReg := phonebooks.DefaultFetcherRegistry(client)

	var directories []*phonebook.Directory
	for _, src := range sourceReg.All() {
		fetcher, err := fetcherReg.FetcherFor(src)
		if err != nil {
			return fmt.Errorf("resolve fetcher for phonebook %s: %w", src.ID, err)
		}
		region := src.Region
		if region == "" {
			region = cfg.DefaultRegion
		}
		directories = append(directories, phonebook.NewDirectory(ctx, fetcher, src, phonebook.StaticRegion(region)))
	}

	for _, number := range numbers {
		name, book := resolve(directories, number)
		if name == "" {
			fmt.Printf("%s\tnot found\n", number)
			continue
		}
		fmt.Printf("%s\t%s\t(%s)\n", number, name, book)
	}

	return nil
}

func resolve(directories []*phonebook.Directory, number string) (name, book string) {
	for _, dir := range directories {
		if n, ok := dir.LookupNumber(number); ok {
			return n, dir.Name()
		}
	}
	return "", ""
}
