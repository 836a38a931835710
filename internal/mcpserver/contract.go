package mcpserver

// DocumentFormatContract describes the canonical Markdown document
// format that LLM consumers should follow when creating or updating
// documents.
const DocumentFormatContract = `# Dagaz Document Format Contract

Every Markdown document stored in Dagaz follows this structure.

## Structure

` + "```" + `markdown
---
title: "Human-readable title"       # display name in the dashboard sidebar
emoji: "📄"                          # single emoji shown next to the title
category: "Reference"               # one of the categories listed below
last_edited_by: "Agent"             # attribution of the last write
---
# Heading

Body text in standard Markdown.
` + "```" + `

## Rules

1. **The metadata header is managed by the service.** Tools accept and
   return the Markdown body only; never include the ` + "`" + `---` + "`" + ` fences in
   tool arguments. The service attaches and maintains the header itself.
2. **Filenames** are flat (no directories), end with ` + "`" + `.md` + "`" + `, and are
   derived from the title on creation (lowercase, dashes).
3. **Categories** are one of: Guide, Security, Reference, Project,
   System, Spec, Pulse, Report. When omitted, the category is inferred
   from title keywords and falls back to Reference.
4. **Every overwrite is snapshotted.** The prior content is archived
   before new content lands, so edits are always recoverable via
   ` + "`" + `list_versions` + "`" + ` and the version history API.
5. **Encoding** is UTF-8 with a trailing newline.

## Example body (what write_document expects)

` + "```" + `markdown
# Weekly Report

## Highlights

- Shipped the new sync engine.
- Closed 12 issues.
` + "```" + `
`
