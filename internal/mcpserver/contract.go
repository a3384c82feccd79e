package mcpserver

// NoteFieldContract describes the note fields and constraints that LLM
// consumers must respect when creating or updating notes.
const NoteFieldContract = `# Laguz Note Contract

Every note managed through Laguz follows this shape.

## Fields

- title     REQUIRED. Non-empty after trimming, at most 200 characters.
- content   Optional free text, at most 100000 characters.
- category  Optional. 1-50 characters; letters, digits, hyphens,
            underscores and spaces only. A note has at most one category.
- tags      Optional list, at most 10 entries. Each 1-50 characters,
            same character set as category. Avoid duplicate tags
            (duplicates are accepted with a warning).
- color     Optional hex color: #RGB or #RRGGBB.

## Rules

1. HTML and script tags are stripped from title, content, category and
   tags before storage. Do not rely on markup surviving.
2. Deleting a note is a soft delete: the note stays addressable by id
   and can be restored. Permanent deletion is a separate, explicit step.
3. Ids, timestamps and the pinned/favorite flags are managed by the
   engine; never supply them.
`
