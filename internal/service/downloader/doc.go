// Package downloader fetches a single URL into a local file, resuming from
// whatever prefix of the file is already on disk.
//
// Resumption is inferred only from the destination file's length and the
// server's reply. There is no sidecar state:
//
//   - A non-empty file causes a "Range: bytes=<size>-" request.
//   - 416 Range Not Satisfiable means the file is already complete.
//   - A 2xx reply with Content-Range resumes at the offset the server names.
//   - A 2xx reply without Content-Range means the range was ignored. The
//     partial file is discarded and the body is written from offset 0.
//
// Progress is delivered to registered observers as integer percentages,
// once per distinct value, in registration order, on the calling goroutine.
//
//	d := downloader.New(nil, client, fsManager, dispatcher, logger)
//	id := d.AddObserver(downloader.ProgressFunc(func(e domain.ProgressEvent) {
//	    fmt.Println(e.Percent)
//	}))
//	defer d.RemoveObserver(id)
//
//	result, err := d.Download(ctx, target)
package downloader
