package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/zhukovaskychina/btreeindex/catalog"
	"github.com/zhukovaskychina/btreeindex/enginelog"

	btreeengine "github.com/zhukovaskychina/btreeindex/engine"
	"github.com/zhukovaskychina/btreeindex/order"
	"github.com/zhukovaskychina/btreeindex/pagination"
	"github.com/zhukovaskychina/btreeindex/storeadapter/memadapter"
)

const help = `
******************************************************************************************

 ______ _______ _______ _______ _______ _______ __   _ ______  _______ _     _
 |_____/     |  |_____/ |______ |______ |______ | \  | |     \ |______  \___/
 |    \_     |  |    \_ |______ |______ |______ |  \_| |_____/ |______ _/   \_

******************************************************************************************
usage:
  -configPath   path to a TOML defaults file (see config.Load)
******************************************************************************************
`

func main() {
	fmt.Print(help)

	var configPath string
	flag.StringVar(&configPath, "configPath", "", "path to a TOML defaults file")
	flag.Parse()

	adapter := memadapter.New()

	var eng *btreeengine.Engine
	if configPath != "" {
		loaded, err := btreeengine.NewFromConfigFile(adapter, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading %s: %s\n", configPath, err)
			os.Exit(1)
		}
		eng = loaded
	} else {
		eng = btreeengine.New(adapter, btreeengine.WithLogger(enginelog.New(os.Stderr, "debug", "")))
	}
	adapter.RegisterWorkHandler(catalog.DeleteSubtreeWork, eng.DeleteSubtreeHandler())

	ctx := context.Background()
	namespace := order.String("demo")

	if err := eng.Init(ctx, namespace, nil); err != nil {
		fmt.Fprintf(os.Stderr, "init: %s\n", err)
		os.Exit(1)
	}

	for i := 0; i < 20; i++ {
		key := order.Int(int64(i))
		if err := eng.Insert(ctx, namespace, key, fmt.Sprintf("value-%d", i)); err != nil {
			fmt.Fprintf(os.Stderr, "insert %d: %s\n", i, err)
			os.Exit(1)
		}
	}

	page, err := eng.Paginate(ctx, namespace, pagination.Request{Limit: 5, Order: pagination.Asc})
	if err != nil {
		fmt.Fprintf(os.Stderr, "paginate: %s\n", err)
		os.Exit(1)
	}
	for _, item := range page.Items {
		fmt.Printf("%s -> %s\n", item.Key, item.Value)
	}

	if err := eng.Validate(ctx, namespace); err != nil {
		fmt.Fprintf(os.Stderr, "validate: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("tree valid, first page cursor:", page.Cursor)
}
