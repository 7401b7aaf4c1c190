package mcpserver

// CSVFormatContract describes the client CSV accepted by the upload_csv tool,
// the web upload form and the inbox folder.
const CSVFormatContract = `# NAARAD Client CSV Format

The first row is a header. Column names are case-sensitive; unknown columns are
ignored and missing columns take their default. Blank rows are skipped.

| Column          | Meaning                                   | Default      |
|-----------------|-------------------------------------------|--------------|
| id              | stable client identifier                  | random UUID  |
| name            | display name                              | empty        |
| company         | organisation                              | empty        |
| email           | contact address                           | empty        |
| status          | active, pending, overdue or responded     | pending      |
| urgency         | high, medium or low                       | medium       |
| lastInteraction | ISO-8601 date or datetime                 | unset        |
| type            | follow-up category (renewal, demo, ...)   | renewal      |
| dueDate         | ISO-8601 date or datetime                 | unset        |
| details         | free text                                 | unset        |
| auto            | the literal ` + "`true`" + ` enables automation     | false        |

## Rules

1. A date that cannot be parsed rejects the whole file; the error names the line.
2. Uploading replaces the entire client list held by the backend.
3. Every client uploaded with ` + "`auto=true`" + ` gets an initial follow-up scheduled.

## Example

` + "```" + `csv
id,name,company,email,status,urgency,lastInteraction,auto
c-100,Dana Reyes,Northwind,dana@northwind.test,active,high,2024-03-01,true
c-101,Lee Park,Contoso,lee@contoso.test,pending,low,,
` + "```" + `
`
