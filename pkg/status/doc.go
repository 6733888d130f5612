/*
Package status tracks what happened to every file of a run and owns the file
system writes.

	+-------------+        +-------------+
	|  Operation  | -----> |   Manager   |
	| (Transform) |        | Files+Stats |
	+-------------+        +------+------+
	                              |
	                       +------+------+
	                       |  RunResult  |
	                       |  (Report)   |
	                       +-------------+

🎯 Purpose:
- Atomic in-place writes that keep the file mode
- Backups before rewriting
- Aggregating FileOutcomes into a RunResult, safely from many workers
- Rendering the final report (table or JSON)

📊 File states:

	Unread -> Decoded -> Unchanged
	                  -> Written | Planned (dry run) | WriteError
	       -> Undecodable
	       -> ReadError

Every non-fatal problem ends up in RunResult.Skipped (undecodable files) or
RunResult.Errors (listing, read and write failures).
*/
package status
