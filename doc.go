// Package orm is an object-relational framework built around an
// entity query language: select statements are written against entity
// names and attribute paths, compiled to dialect-specific SQL, and
// materialized back into registered Go structs.
//
// A minimal session:
//
//	reg := schema.NewRegistry()
//	// register entity types...
//	client, err := orm.Open(dialect.SQLite, "file:app.db", reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.CreateSchema(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = client.Persist(ctx, &Event{Name: "launch"})
//	event, err := client.Query("from Event e where e.name = :n").
//	    SetParameter("n", "launch").
//	    MaxResults(1).
//	    UniqueResult(ctx)
//
// Query parameters accept registered entity instances directly: the
// entity flattens to its primary key, and a nil entity binds SQL NULL,
// so a single parameter can drive both branches of a null-or-equal
// condition.
package orm
