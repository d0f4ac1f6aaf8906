package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
	"github.com/sw33tLie/callerid/pkg/provider"
)

func main() {
	// Usage: go run *.go -number "+1 555 123 4567"

	numberFlag := flag.String("number", "", "Incoming phone number to resolve")
	flag.Parse()

	if *numberFlag == "" {
		fmt.Println("Number is required. Please provide it using -number flag.")
		return
	}

	ctx := context.Background()

	// A nil backend keeps the directory in memory; pass a *storage.DB to persist it.
	dir, err := directory.Open(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}
	n, err := phone.New("(555) 123-4567", phone.KindCell, phone.DefaultRegion)
	if err != nil {
		log.Fatal(err)
	}
	rec, err := directory.NewRecord("Ana", "Lee", n)
	if err != nil {
		log.Fatal(err)
	}
	if err := dir.Upsert(ctx, rec); err != nil {
		log.Fatal(err)
	}

	p, err := provider.New(dir, provider.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	rows, err := p.LookupNumber(ctx, *numberFlag)
	if err != nil {
		log.Fatal(err)
	}
	if len(rows) == 0 {
		fmt.Println("Unknown caller")
		return
	}
	for _, r := range rows {
		fmt.Println(r.DisplayName, "-", r.Label, "-", r.PhotoURI)
	}
}
