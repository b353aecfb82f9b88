// Package entrysearch is the Go SDK for debounced entry search sessions.
//
// A Session keeps the search state of one presentation surface: search text,
// pagination and the static plus dynamic filters. Every mutation derives the
// outbound query, returns it and schedules it; bursts inside the debounce
// window collapse into one content source call, and only the response of the
// latest dispatched call is applied.
//
//	sess, _ := entrysearch.New(ctx,
//	    entrysearch.WithEndpoint("https://cms.example.com/api/entries/query"),
//	    entrysearch.WithPageSize(20),
//	    entrysearch.WithFilterBlocks(entrysearch.FilterBlock{
//	        ID: "0", Key: "category", Operator: "in", Value: "boots|sandals",
//	    }),
//	)
//	defer sess.Close()
//
//	sess.SetSearch("leather")
//	sess.SetCurrentPage(2) // offset 40
//
//	snap := sess.Snapshot()
//	for _, e := range snap.Entries {
//	    fmt.Println(e.ID(), e.String("title"))
//	}
package entrysearch
