// Package importer performs create-if-absent bulk entity imports from
// delimited text input.
//
// The header row defines field names (case-insensitive, trimmed); a
// reserved "type" column routes each row to its entity schema: domain,
// subdomain, client, or business_unit. Rows missing required fields are
// logged and counted, never fatal. Creation conflicts (409) mean the
// entity already exists and count as skipped.
package importer
