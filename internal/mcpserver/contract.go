package mcpserver

// ContentFormatContract describes the canonical content entry format
// that LLM consumers should follow when adding items to the reading list.
const ContentFormatContract = `# Mindmarks Content Entry Contract

Every entry added to the Mindmarks reading list MUST follow this structure.

## Fields

- **title** (required): the human-readable title of the content.
- **type** (required): one of ` + "`book`, `article`, `video`, `podcast`, `course`, `other`" + `.
- **url** (optional): the canonical source URL. Required for articles and
  videos when a source exists.
- **summary** (optional): one short paragraph. No Markdown headings.
- **tags** (optional): comma-separated, lowercase, kebab-case
  (e.g. ` + "`deep-work`, `systems-thinking`" + `).

## Board columns

New entries start in the ` + "`planned`" + ` column. Valid columns for
move_content are:

- ` + "`planned`" + ` — not started yet
- ` + "`in-progress`" + ` — currently being read or watched
- ` + "`done`" + ` — finished or archived

## Rules

1. **Do not duplicate entries.** Search first (` + "`search_content`" + `) and
   update the existing entry instead of adding a second one.
2. **Titles are plain text.** No Markdown, no quotes, no trailing
   punctuation.
3. **Tags describe the subject**, not the state; state lives in the board
   column.
4. Each entry's document starts from a type-specific template; do not
   overwrite the template structure when amending notes.

## Example

` + "```" + `json
{
  "title": "Atomic Habits",
  "type": "book",
  "tags": "habits, behavior-change",
  "summary": "A framework for building good habits through small incremental changes."
}
` + "```" + `
`
