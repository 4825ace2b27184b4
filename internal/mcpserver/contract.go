package mcpserver

// MarkInputFormat describes how add_mark input is turned into a mark and
// what a stored Waystation looks like.
const MarkInputFormat = `# Waystation Mark Input

A mark is created from one line of free text.

## Grep-style locations

` + "```" + `text
path:line
path:line:column
path:line:column:matching text
path:line:matching text
` + "```" + `

1. **path** may contain letters, digits, underscores, dots and forward slashes.
2. **line** and **column** are non-negative integers. A missing column is 0.
3. **matching text** becomes both the mark name and its body. Without it the
   path is used as name and body.
4. Relative paths that exist on disk are stored as absolute paths.

## Anything else

Input that is not a grep-style location is kept verbatim as the mark name,
body and path, with line and column 0. This lets a mark hold a thought
rather than a place.

## Resources

Marks carry resources of type ` + "`" + `note` + "`" + `, ` + "`" + `url` + "`" + `, ` + "`" + `waystation` + "`" + ` or ` + "`" + `path` + "`" + `.
Notes added with add_note are named ` + "`" + `Note #n` + "`" + `. A mark with a line gets a
` + "`" + `File Context` + "`" + ` note holding the surrounding lines of its file.

## Example

` + "```" + `text
internal/storage/fs.go:42:7:func (f *FS) Write(name string, content []byte) error {
` + "```" + `

The full document schema is served as ` + "`" + `waystation://schema` + "`" + `.
`
