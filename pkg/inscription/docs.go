package inscription

// LookupDocumentation describes the queries accepted by the PlebNames lookup service.
const LookupDocumentation = `# PlebNames Lookup Service

**Lookup Service Name**: ` + "`ls_plebnames`" + `

---

## Overview

The PlebNames Lookup Service indexes name records seen in outputs admitted under ` + "`tm_plebnames`" + `.
A record is the ASCII text ` + "`name.key=value`" + ` pushed after ` + "`OP_RETURN`" + `, at most 75 bytes.

Sightings are an index, not an authority: only records sent by the current owner of a name count.
Use a ` + "`resolve`" + ` query to obtain the authoritative state, computed from the ledger.

---

## Queries

Send a LookupQuestion with ` + "`service = \"ls_plebnames\"`" + ` and one of:

- ` + "`\"findAll\"`" + `: every sighting, oldest first.
- A sighting filter:
  ` + "```" + `json
  { "name": "alice", "key": "website", "limit": 10, "skip": 0, "sortOrder": "desc" }
  ` + "```" + `
  ` + "`name`" + ` is normalized before matching, so ` + "`Alice`" + ` and ` + "`alice`" + ` find the same records.
- A resolution request:
  ` + "```" + `json
  { "resolve": "alice" }
  ` + "```" + `
  Returns the current owner, well-known fields, free-form fields and the change log.

## Answers

All answers are freeform. Sightings carry ` + "`outpoint`, `name`, `key`, `value`, `createdAt`" + `.
`

// TopicManagerDocumentation describes the admission rules of the PlebNames topic manager.
const TopicManagerDocumentation = `# PlebNames Topic Manager

**Topic**: ` + "`tm_plebnames`" + `

Admits every output whose locking script is ` + "`OP_RETURN <push>`" + ` or ` + "`OP_FALSE OP_RETURN <push>`" + `
and whose pushed data parses as a record ` + "`name.key=value`" + `:

- the name is everything before the first ` + "`.`" + ` and must keep at least one character after normalization
- the key is everything up to the first following ` + "`=`" + ` and must not be empty
- the value is the rest and may be empty
- the payload is ASCII

Admission says nothing about authority. Whether the sender owns the name is decided at resolution time.
`
