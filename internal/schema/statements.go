package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var shellIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Statements renders the plan as mongo shell statements, in plan order.
// Collection descriptions become comment lines.
func (p *Plan) Statements() []string {
	var out []string
	for _, c := range p.Collections {
		if c.Description != "" {
			out = append(out, "// "+c.Description)
		}
		out = append(out, fmt.Sprintf("db.createCollection(%q)", c.Name))

		target := collectionRef(c.Name)
		for _, idx := range c.Indexes {
			out = append(out, fmt.Sprintf("%s.createIndex(%s)", target, indexArgs(idx)))
		}
	}
	return out
}

// Script joins Statements into a script that can be pasted into a shell.
func (p *Plan) Script() string {
	return strings.Join(p.Statements(), "\n") + "\n"
}

func collectionRef(name string) string {
	if shellIdentifier.MatchString(name) {
		return "db." + name
	}
	return fmt.Sprintf("db.getCollection(%q)", name)
}

func indexArgs(idx IndexSpec) string {
	var opts []string
	if idx.Unique {
		opts = append(opts, "unique: true")
	}
	if idx.Name != "" {
		opts = append(opts, fmt.Sprintf("name: %q", idx.Name))
	}
	if len(opts) == 0 {
		return idx.KeyPattern()
	}
	return idx.KeyPattern() + ", { " + strings.Join(opts, ", ") + " }"
}
