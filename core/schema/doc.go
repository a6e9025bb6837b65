/*
Package schema defines namespaced, versioned object schemas as plain data.

An object schema groups named types under a namespace and a semantic version.
Each type lists its properties; each property names a base kind and an ordered
list of constraints. Nothing here is executable: package validation compiles
these definitions into validators.

# Schema Definition

A minimal schema in YAML:

	namespace: ns://acme/crm
	version: 1.0.0
	description: CRM entities

	types:
	  Person:
	    properties:
	      age:
	        type: Number
	        constraints:
	          - { method: required }
	          - { method: min, args: [0] }
	      email:
	        type: String
	        constraints:
	          - { method: email }
	      address:
	        type: Object
	        constraints:
	          - method: objectSchemaType
	            args: [{ namespace: "ns://acme/geo", version: "1.0.0", type: Address }]

# Kinds

Supported kinds: String, Number, Boolean, Array, Object, Function, Any.
Kind names are matched exactly.

# Constraints

Every kind accepts the base methods required, allow, deny, valid, invalid,
with, without and nullOk. Kind-specific methods are listed in package
capability. Three methods take structured arguments:

  - objectSchemaType (Object): one {namespace, version, type} reference to a
    type in any registered schema, resolved at validation time.
  - includes, excludes (Array): nested {type, constraints} descriptions that
    array elements must (or must not) satisfy.

An Object property may instead carry typeArgs, an inline anonymous type.

# Construction

New validates the namespace, version and description, then builds every
type, checking each constraint against the capability table. Errors found
here never depend on registry state:

	s, err := schema.New(def)
	s, err := schema.ParseFile("schemas/crm.yaml")
	all, err := schema.ParseDir("schemas/")
*/
package schema
