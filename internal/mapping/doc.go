// Package mapping provides the YAML schema of mapping files, parsing,
// validation, and the builder that turns a file into mapping trees.
//
// # Schema Overview
//
// The mapping file has the following structure:
//
//	version: "1"
//	dialect: sqlite
//	imports:
//	  address:                       # reusable sub-tree
//	    kind: object
//	    type: Address
//	    fields:
//	      street: street
//	      city: city
//	entities:
//	  Order:
//	    table: orders                # defaults to snake cased name
//	    fields:
//	      id: {column: id, column_type: integer, required: true}
//	      note: note                 # string field over column "note"
//	      mailer: {kind: service, service: mailer}
//	      tags:
//	        kind: list
//	        column: tags
//	        entry: {kind: field}     # reads the list element
//	      shipping: {kind: proxy, import: address, prefix: ship_}
//	      customer:
//	        kind: object
//	        type: shop.Customer
//	        id: customer
//	        factory: Customer.New    # static routine of a registered type
//	        fields:
//	          name: customer_name
//	      payment:
//	        kind: choice             # determinator defaults to payment_type
//	        choices:
//	          card: {kind: object, type: Card, fields: {number: card_number}}
//	          cash: {kind: null}
//	      discount:
//	        kind: nullable
//	        indicator: has_discount
//	        inner: {column: discount, column_type: decimal}
//
// # Shorthands
//
//   - A bare string node is a string field over that column.
//   - A node without kind is a field; without column it uses the field name.
//   - A call written as "routine" calls a free routine, "callee.routine"
//     splits at the last dot. Callees are root, self, parent, "@service",
//     a registered type name or a registry key.
//
// # Type names
//
// Type names resolve through a TypeRegistry as "Name", "pkg.Name" or the
// fully qualified "import/path.Name". With SchemaOnly unknown types are
// tolerated, so column listings work without the Go types at hand.
package mapping
