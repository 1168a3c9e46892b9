package mcpserver

// NoteFormatURI identifies the note format resource.
const NoteFormatURI = "notekeep://note-format"

// NoteFormat describes note records, list semantics and the Markdown import
// layout for LLM consumers.
const NoteFormat = `# notekeep Note Format

Notes belong to the logged-in user. Tools act on that user only; call
` + "`" + `whoami` + "`" + ` first to check that a session is open.

## Note record

` + "```" + `json
{
  "id": "6f1c0e1a-...",          // assigned by the store
  "userId": "b2d4...",
  "title": "Weekly standup",     // optional, omitted when blank
  "content": "Agenda ...",       // required, trimmed
  "category": "Work",            // required, free text
  "dateAdded": "2026-01-20T09:00:00Z",
  "dateEdited": "2026-01-21T10:30:00Z"   // set on every update
}
` + "```" + `

## Categories

- Every account starts with ` + "`" + `Work` + "`" + `, ` + "`" + `Study` + "`" + ` and ` + "`" + `Personal` + "`" + `.
- Names are unique per user ignoring case and surrounding spaces.
- A note's category is a plain string. Deleting a category does not touch notes.

## Listing and search

1. ` + "`" + `category` + "`" + ` keeps notes whose category matches exactly. ` + "`" + `All` + "`" + ` or empty keeps every note.
2. ` + "`" + `query` + "`" + ` is split on whitespace. A note matches when ANY word occurs,
   case-insensitively, in its title or content.
3. ` + "`" + `order` + "`" + ` is ` + "`" + `desc` + "`" + ` (newest first, default) or ` + "`" + `asc` + "`" + `, by ` + "`" + `dateAdded` + "`" + `.

## Updates

` + "`" + `update_note` + "`" + ` changes only the fields you pass. Pass ` + "`" + `etag` + "`" + ` from
` + "`" + `read_note` + "`" + ` to fail instead of overwriting a concurrent edit.

## Markdown import

Files imported with ` + "`" + `notekeep import <dir>` + "`" + ` may carry YAML frontmatter:

` + "```" + `markdown
---
title: Weekly standup      # else the first "# " heading, else the file name
category: Work             # else the first tag, else Personal
tags: [meeting-notes]
created: 2026-01-20        # RFC 3339, "YYYY-MM-DD hh:mm:ss" or a date
---

Body text. Inline #tags are collected too.
` + "```" + `
`
