// Package ingest turns raw fiscal-invoice exports into normalized tables.
//
// It handles the two source shapes the upstream portal produces:
//
//  1. A single CSV file, in an unknown encoding and with heterogeneous
//     column headings.
//  2. A ZIP archive holding exactly one header file and one items file
//     ({yyyymm}_NFs_Cabecalho.csv and {yyyymm}_NFs_Itens.csv), which are
//     joined on the access key into one denormalized invoice-line view.
//
// # Data Flow
//
//	bytes → encoding.Resolve → csv parse → column normalization → Table
//	zip   → member validation → two Tables → inner join on chave_de_acesso
//
// # Fault tolerance
//
// Encoding ambiguity and column-name collisions never fail ingestion; both
// are resolved by documented deterministic policies. Structural problems
// (wrong archive membership, missing join key) always surface as typed
// errors carrying enough detail to render an actionable message.
//
// The package performs no caching and no I/O beyond what it is handed;
// cache.Store owns file reading and result retention.
package ingest
