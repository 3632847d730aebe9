package airtable_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ajitpratap0/airtable/pkg/airtable"
	"github.com/ajitpratap0/airtable/pkg/errors"
)

func ExampleClient_FetchRecords() {
	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	it := client.FetchRecords("Tasks", airtable.ListOptions{
		Filter: "{Status}='Todo'",
		Sort:   []airtable.Sort{{Field: "Estimate", Direction: airtable.SortDesc}},
	})
	for it.Next(ctx) {
		fmt.Println(it.Record().Fields["Name"])
	}
	if err := it.Err(); err != nil {
		log.Fatal(err)
	}
}

func ExampleClient_CreateRecords() {
	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"),
		airtable.WithMaxConcurrency(2),
		airtable.WithPostCallDelay(200*time.Millisecond))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	rows := []airtable.Fields{
		{"Name": "Write docs", "Estimate": 3},
		{"Name": "Ship", "Status": "Todo"},
	}
	created, err := client.CreateRecords(context.Background(), "Tasks", rows, airtable.WriteOptions{Typecast: true})
	var batchErr *errors.BatchError
	if errors.As(err, &batchErr) {
		log.Printf("%d records created before batch %v failed", len(created), batchErr.FailedBatches())
	} else if err != nil {
		log.Fatal(err)
	}
}

func ExampleClient_UploadAttachment() {
	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	attachments, err := client.UploadAttachment(context.Background(), "Tasks", "recXXXXXXXXXXXXXX", "Files",
		strings.NewReader("meeting notes"), "notes.txt", "text/plain")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(attachments[len(attachments)-1].URL)
}

func ExampleAwaitAll() {
	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	a := client.Async()
	todo := a.FetchAll(ctx, "Tasks", airtable.ListOptions{Filter: "{Status}='Todo'"})
	done := a.FetchAll(ctx, "Tasks", airtable.ListOptions{Filter: "{Status}='Done'"})

	results, err := airtable.AwaitAll(ctx, todo, done)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(results[0]), "open,", len(results[1]), "done")
}
