// Package core provides the dataset workflow behind the dashboard.
//
// It sits between the transport layers (web handlers, the dashctl CLI) and
// the leaf packages that do the work: kaggle fetches archives, staging
// unpacks and lists them, frame parses and summarizes tables, session holds
// per-user state and activity records what happened.
//
// # Service
//
// [Service] holds no per-user state. Every operation takes the caller's
// [session.Session] explicitly:
//
//	sess, _ := sessions.GetOrCreate(cookie)
//	res, err := svc.Download(ctx, sess, "https://www.kaggle.com/datasets/blastchar/telco-customer-churn")
//	// res.Selected is now the session's selected file
//	loaded, err := svc.LoadSelected(ctx, sess)
//
// A failed operation leaves the session exactly as it was. Loading always
// replaces the active table wholesale.
//
// # Downloads
//
// Downloads run under a [Limiter] so a burst of requests cannot open an
// unbounded number of remote connections. The archive is removed only after
// every entry extracted cleanly.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - REF001: malformed dataset link
//   - AUTH001, NET001-NET002: remote source failures
//   - ARC001-ARC002: archive problems
//   - FILE001-FILE004, PARSE001: file and parse errors
//   - DS001-DS002, COL001-COL002: dataset state and column lookups
//   - BUSY001, RATE001: load shedding
package core
