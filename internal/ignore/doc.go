// Package ignore provides gitignore-syntax pattern matching for folder
// exclude lists.
//
// It implements the gitignore pattern syntax as documented at:
// https://git-scm.com/docs/gitignore, reused here to filter a folder's
// scan tree against its configured exclude patterns. There is no version
// control concept in folderd, but the glob operators teams already know
// from .gitignore (*.tmp, **/cache/**, !keep.me) are the natural syntax
// for a folder's Folders.Exclude list too.
//
// Features:
//   - Basic pattern matching (*.log, temp/)
//   - Wildcard patterns (*, ?, **)
//   - Rooted patterns (/build)
//   - Negation patterns (!important.log)
//   - Directory-only patterns (build/)
//   - Thread-safe matching
//
// Usage:
//
//	m := ignore.New()
//	m.AddPattern("*.tmp")
//	m.AddPattern("!important.tmp")
//	m.AddPattern("/build/")
//
//	if m.Match("error.tmp", false) {
//	    // Path is excluded from scanning
//	}
//
// Patterns can also be loaded in bulk from a folder's configuration or
// from an on-disk exclude file:
//
//	m.AddPatterns(cfg.Folders.Exclude)
//	m.AddFromFile("/path/to/.folderdignore", "")
package ignore
