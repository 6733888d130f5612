/*
Package operation applies a rule set to a directory tree or a single file.

	+-------------+
	|    Walk     |
	|  (Listing)  |
	+------+------+
	       |
	+------+------+
	|   Engine    |
	| (Transform) |
	+------+------+
	       |
	+------+------+
	|   Status    |
	|  (Storage)  |
	+-------------+

🎯 Purpose:
- Runs every listed file through the rules, in rule order
- Writes a file only when at least one rule matched
- Classifies every file into exactly one terminal status

🔄 Flow:
1. RunTree checks the root, validates the walk options and takes the per-root lock
2. Files are scheduled on a bounded errgroup as the walker yields them
3. ProcessFile reads, decodes, applies the rules and writes atomically
4. Outcomes are aggregated by a status.Manager into a RunResult

⚡ Failure handling:
- A missing root or input fails with ErrNotFound before anything is read
- Listing, read and write failures are recorded and the run continues
- Undecodable files are skipped and recorded
- Cancellation stops scheduling, the partial result is returned with the error

🔍 Example:

	rs, err := text.NewRuleSet(text.Rule{Pattern: "foo", Replacement: "bar"})
	if err != nil {
		return err
	}
	eng, err := operation.New(operation.Options{Rules: rs})
	if err != nil {
		return err
	}
	res, err := eng.RunTree(ctx, "./repo", walk.Options{})
*/
package operation
