// Copyright 2015 Kerby Shedden

/*
Package sas7bdat reads SAS7BDAT files, the proprietary binary dataset
format produced by the SAS statistical system.

There is no official documentation of the SAS7BDAT format; this code is
based on previous efforts to reverse-engineer it. A file begins with a
variable-length header whose layout depends on whether it was written on a
32- or 64-bit system, followed by a sequence of fixed-size pages. Pages
carry either column metadata (subheaders identified by a magic signature),
row data, or both. Rows may be stored run-length-encoded.

Reader exposes the decoded schema (Properties, Column) and a pull-driven
row iterator. Writing SAS7BDAT files, random access by row number, and the
Ross Data Compression variant (signature "SASYZCR2") are not supported; see
DESIGN.md for why.
*/
package sas7bdat
