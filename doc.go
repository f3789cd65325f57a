// Package findergo is an embeddable local filesystem search index.
//
// The host application walks the filesystem, extracts text and feeds the
// index; findergo stores file metadata and an inverted content index, and
// answers ranked queries over both. It does no filesystem watching or content
// extraction itself.
//
//   - Identity: files are keyed by (device, inode), so renames update the
//     existing record instead of duplicating it.
//   - Generations: commits publish immutable snapshots; queries read the
//     current generation lock-free while the writer prepares the next one
//     via copy-on-write.
//   - Durability: acknowledged upserts are write-ahead logged; commits
//     persist a compressed, checksummed segment and publish it by an atomic
//     manifest pointer move. A crash at any point leaves either the old or
//     the new generation fully intact.
//   - Storage: segments live in a pluggable blob store. Local directories
//     (memory-mapped reads), MinIO and S3 (with a DynamoDB publication
//     pointer) are provided.
//
// # Quick start
//
//	ctx := context.Background()
//	idx, err := findergo.Open("./index")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	meta := model.FileMeta{
//	    ID:    model.FileID{Dev: 1, Inode: 42},
//	    Path:  "/home/user/notes/todo.txt",
//	    MTime: time.Now().Unix(),
//	    Size:  128,
//	}
//	if _, err := idx.AddOrUpdate(ctx, meta, "buy milk, call dentist"); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := idx.Commit(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	hits, err := idx.Search(ctx, model.SearchQuery{Term: "dentist", Scope: model.ScopeAll})
//
// A C ABI for embedding in non-Go hosts lives in the capi directory.
package findergo
