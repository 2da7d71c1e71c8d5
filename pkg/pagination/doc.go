// Package pagination walks cursor-paginated Congress.gov list endpoints.
//
// List responses carry the items under an endpoint-specific key and a
// pagination object whose next field is an absolute URL or null. A Walker
// fetches the first page with a fixed page size, then follows next links until
// the server stops handing them out, yielding items lazily in server order.
//
// Example usage:
//
//	walker := pagination.NewWalker(congressClient, pagination.DefaultConfig(), logger)
//	for item, err := range walker.Walk(ctx, pagination.Endpoint{Path: "bill/118", DataKey: "bills"}) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(item.String("number"))
//	}
//
// The walker:
//   - Fetches one page at a time, only when the consumer asks for more items
//   - Stops on a missing or empty pagination block, or a repeated next link
//   - Short-circuits once Endpoint.Limit items have been yielded
//   - Fails the whole traversal when a page cannot be fetched
//   - Optionally checkpoints the next link in a CursorStore so an interrupted
//     traversal can pick up from the last fully consumed page
package pagination
