/*
Package config loads rule tables and traversal settings for retext.

	            +-------------+
	            |   Config    |
	            |   (Rules)   |
	            +------+------+
	                   |
	     +-------------+-------------+
	     |             |             |
	+----+----+   +----+----+   +----+----+
	|  YAML   |   |  JSON   |   |   HCL   |
	| Parser  |   | Parser  |   | Parser  |
	+---------+   +---------+   +---------+

🎯 Purpose:
- Keeps rule tables out of code
- Validates rules and globs before any file is touched
- Maps config values onto text.RuleSet and walk.Options

🔄 Flow:
1. Discover finds .retext.yaml, .retext.hcl, .retext.json or .retext
2. Load picks a parser by extension (a bare .retext tries YAML, then HCL)
3. Validate checks the rules, globs and limits
4. RuleSet and WalkOptions hand the values to the engine

📝 YAML:

	rules:
	  - name: domain
	    pattern: 'acme\.example'
	    replacement: globex.example
	  - pattern: acme
	    replacement: Globex
	    ignore_case: true
	exclude_dirs: [.git, node_modules]

📝 HCL (env.NAME reads the environment, $${1} escapes a group reference):

	rule "domain" {
	  pattern     = "acme[.]example"
	  replacement = env.NEW_DOMAIN
	}

Unknown fields are rejected in every format.
*/
package config
