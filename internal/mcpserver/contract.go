package mcpserver

// NoteFormatContract describes how notes must be written for memory
// extraction to attribute observations to the right entities.
const NoteFormatContract = `# Maxwell Note Format

Maxwell reads Markdown notes under the daily and projects directories and
turns every bullet into an observation owned by one entity.

## Files

- Daily notes are named ` + "`" + `daily/YYYY-MM-DD.md` + "`" + `. The date becomes an
  entity and the creation date of every observation in the file.
- Project notes live under ` + "`" + `projects/` + "`" + ` with any name; their
  observations are dated the day they are first indexed.
- An optional YAML frontmatter block (` + "`" + `---` + "`" + ` fences on the first line)
  is ignored.

## Bullets

` + "```" + `markdown
- [[Maxwell]]
    - decided to use SQLite for storage
    - [ ] ship v1
    - [[Bob]] reviewed the design
## Email Actions
- [10:00] replied to alice@example.com: "Launch"
` + "```" + `

1. A top-level bullet containing ` + "`" + `[[Name]]` + "`" + ` makes Name the owner of
   the bullets that follow until the next header.
2. A nested bullet containing ` + "`" + `[[Other]]` + "`" + ` links Other as a child of
   the enclosing entity. Aliases (` + "`" + `[[Other|label]]` + "`" + `) resolve to Other.
3. Bullets with no owner in a daily note belong to the date entity. Headers
   reset the owner, so log sections such as "Email Actions" stay on the date.
4. ` + "`" + `- [ ]` + "`" + ` and ` + "`" + `- [x]` + "`" + ` are tasks (open and done).
5. Lines under Review, Links, Reading, Reference, Watch or Listen headers are
   references. A bare URL is a link, a trailing ` + "`" + `?` + "`" + ` a question, and
   "decided", "chose", "will use" or "going to use" a decision.
6. URLs become entities referenced by the current owner.
7. HTML comments (` + "`" + `<!-- ... -->` + "`" + `) are dropped before extraction.
8. Indent with four spaces or tabs. Only ` + "`" + `- ` + "`" + ` bullets are read.
`
