package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

const (
	modulePath = "github.com/fcjm/hibernate-orm"
	pkgSchema  = modulePath + "/schema"
	pkgSQL     = modulePath + "/dialect/sql"
	pkgStdSQL  = "database/sql"
	pkgUUID    = "github.com/google/uuid"
)

const header = "Code generated by ormgen. DO NOT EDIT."

// Generate renders all files of the definition into outDir: one file
// per entity plus the registry constructor. Files are formatted with
// goimports and written in parallel.
func Generate(def *Definition, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("gen: create output directory: %w", err)
	}
	files := make(map[string]*jen.File, len(def.Entities)+1)
	for _, e := range def.Entities {
		files[strings.ToLower(inflect.Underscore(e.Name))+".go"] = entityFile(def, e)
	}
	files["registry.go"] = registryFile(def)

	eg := new(errgroup.Group)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for name, f := range files {
		eg.Go(func() error {
			return writeFile(filepath.Join(outDir, name), f)
		})
	}
	return eg.Wait()
}

func writeFile(path string, f *jen.File) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("gen: render %s: %w", filepath.Base(path), err)
	}
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("gen: format %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return fmt.Errorf("gen: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func entityFile(def *Definition, e *Entity) *jen.File {
	f := jen.NewFile(def.Package)
	f.HeaderComment(header)
	genStruct(f, e)
	genFields(f, e)
	genTypeFunc(f, e)
	return f
}

func registryFile(def *Definition) *jen.File {
	f := jen.NewFile(def.Package)
	f.HeaderComment(header)
	f.Comment("NewRegistry returns a registry with all generated entity types.")
	f.Func().Id("NewRegistry").Params().Params(
		jen.Op("*").Qual(pkgSchema, "Registry"), jen.Error(),
	).BlockFunc(func(g *jen.Group) {
		g.Id("reg").Op(":=").Qual(pkgSchema, "NewRegistry").Call()
		g.If(
			jen.Id("err").Op(":=").Id("reg").Dot("Register").CallFunc(func(c *jen.Group) {
				for _, e := range def.Entities {
					c.Id(e.Name + "Type").Call()
				}
			}),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Return(jen.Nil(), jen.Id("err")))
		g.Return(jen.Id("reg"), jen.Nil())
	})
	return f
}

func genStruct(f *jen.File, e *Entity) {
	f.Commentf("%s is the model entity backed by the %s table.", e.Name, e.Table)
	f.Type().Id(e.Name).StructFunc(func(g *jen.Group) {
		g.Id(goName(e.ID.Name)).Add(goType(e.ID))
		for _, a := range e.Attributes {
			g.Id(goName(a.Name)).Add(goType(a))
		}
		for _, a := range e.Associations {
			g.Id(goName(a.Name)).Op("*").Id(a.Target)
			g.Id(fkName(a)).Qual(pkgStdSQL, "NullInt64")
		}
	})
}

func genFields(f *jen.File, e *Entity) {
	type fieldRef struct {
		name, column, kind string
		timeType           bool
	}
	var refs []fieldRef
	add := func(a *Attribute) {
		kinds := map[string]string{
			"bool": "BoolField", "int": "IntField", "int64": "Int64Field",
			"float64": "Float64Field", "string": "StringField",
		}
		if k, ok := kinds[a.Type]; ok {
			refs = append(refs, fieldRef{name: goName(a.Name), column: a.Name, kind: k})
		} else if a.Type == "time" {
			refs = append(refs, fieldRef{name: goName(a.Name), column: a.Name, timeType: true})
		}
	}
	add(e.ID)
	for _, a := range e.Attributes {
		add(a)
	}
	if len(refs) == 0 {
		return
	}
	f.Commentf("%sFields exposes typed column references for query building.", e.Name)
	f.Var().Id(e.Name + "Fields").Op("=").StructFunc(func(g *jen.Group) {
		for _, r := range refs {
			if r.timeType {
				g.Id(r.name).Qual(pkgSQL, "TimeField").Index(jen.Qual("time", "Time"))
			} else {
				g.Id(r.name).Qual(pkgSQL, r.kind)
			}
		}
	}).ValuesFunc(func(g *jen.Group) {
		for _, r := range refs {
			g.Line().Id(r.name).Op(":").Lit(r.column)
		}
		g.Line()
	})
}

func genTypeFunc(f *jen.File, e *Entity) {
	f.Commentf("%sType returns the entity metadata of %s.", e.Name, e.Name)
	f.Func().Id(e.Name+"Type").Params().Op("*").Qual(pkgSchema, "Type").Block(
		jen.Return(jen.Op("&").Qual(pkgSchema, "Type").Values(jen.DictFunc(func(d jen.Dict) {
			d[jen.Id("Name")] = jen.Lit(e.Name)
			d[jen.Id("Table")] = jen.Lit(e.Table)
			d[jen.Id("New")] = jen.Func().Params().Any().Block(
				jen.Return(jen.Op("&").Id(e.Name).Values()),
			)
			d[jen.Id("ID")] = column(e, e.ID)
			if len(e.Attributes) > 0 {
				d[jen.Id("Columns")] = jen.Index().Op("*").Qual(pkgSchema, "Column").ValuesFunc(func(g *jen.Group) {
					for _, a := range e.Attributes {
						g.Line().Add(column(e, a))
					}
					g.Line()
				})
			}
			if len(e.Associations) > 0 {
				d[jen.Id("Assocs")] = jen.Index().Op("*").Qual(pkgSchema, "Association").ValuesFunc(func(g *jen.Group) {
					for _, a := range e.Associations {
						g.Line().Add(association(e, a))
					}
					g.Line()
				})
			}
		}))),
	)
}

func column(e *Entity, a *Attribute) jen.Code {
	return jen.Op("&").Qual(pkgSchema, "Column").Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Name")] = jen.Lit(a.Name)
		d[jen.Id("Type")] = jen.Qual(pkgSchema, fieldTypeName(a.Type))
		if a.Nullable {
			d[jen.Id("Nullable")] = jen.True()
		}
		if a.Unique {
			d[jen.Id("Unique")] = jen.True()
		}
		if a.Size > 0 {
			d[jen.Id("Size")] = jen.Lit(a.Size)
		}
		if g := generator(a.Generated); g != nil {
			d[jen.Id("Generator")] = g
		}
		d[jen.Id("Getter")] = accessor(e, goName(a.Name), false)
		d[jen.Id("Scan")] = accessor(e, goName(a.Name), true)
	}))
}

func association(e *Entity, a *Association) jen.Code {
	return jen.Op("&").Qual(pkgSchema, "Association").Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Name")] = jen.Lit(a.Name)
		d[jen.Id("Target")] = jen.Lit(a.Target)
		d[jen.Id("Column")] = jen.Lit(a.Column)
		if a.Nullable {
			d[jen.Id("Nullable")] = jen.True()
		}
		d[jen.Id("FK")] = accessor(e, fkName(a), true)
		d[jen.Id("FKValue")] = accessor(e, fkName(a), false)
		d[jen.Id("Ref")] = jen.Func().Params(jen.Id("e").Any()).Any().Block(
			jen.If(
				jen.Id("v").Op(":=").Add(entityField(e, goName(a.Name))),
				jen.Id("v").Op("!=").Nil(),
			).Block(jen.Return(jen.Id("v"))),
			jen.Return(jen.Nil()),
		)
		d[jen.Id("Set")] = jen.Func().Params(jen.List(jen.Id("e"), jen.Id("target")).Any()).Block(
			entityField(e, goName(a.Name)).Op("=").Id("target").Assert(jen.Op("*").Id(a.Target)),
		)
	}))
}

// accessor builds a Getter or Scan closure for a struct field.
func accessor(e *Entity, field string, addr bool) jen.Code {
	ret := entityField(e, field)
	if addr {
		ret = jen.Op("&").Add(ret)
	}
	return jen.Func().Params(jen.Id("e").Any()).Any().Block(jen.Return(ret))
}

func entityField(e *Entity, field string) *jen.Statement {
	return jen.Id("e").Assert(jen.Op("*").Id(e.Name)).Dot(field)
}

func generator(name string) jen.Code {
	switch name {
	case "database":
		return jen.Qual(pkgSchema, "Database").Call()
	case "uuid":
		return jen.Qual(pkgSchema, "UUID").Call()
	case "now":
		return jen.Qual(pkgSchema, "Now").Call()
	}
	return nil
}

func goType(a *Attribute) jen.Code {
	switch a.Type {
	case "bool":
		return jen.Bool()
	case "int":
		return jen.Int()
	case "int64":
		return jen.Int64()
	case "float64":
		return jen.Float64()
	case "string":
		return jen.String()
	case "time":
		return jen.Qual("time", "Time")
	case "uuid":
		return jen.Qual(pkgUUID, "UUID")
	default:
		return jen.Index().Byte()
	}
}

func fieldTypeName(t string) string {
	names := map[string]string{
		"bool": "TypeBool", "int": "TypeInt", "int64": "TypeInt64",
		"float64": "TypeFloat64", "string": "TypeString",
		"time": "TypeTime", "uuid": "TypeUUID", "bytes": "TypeBytes",
	}
	return names[t]
}

func goName(s string) string {
	n := inflect.Camelize(s)
	if strings.HasSuffix(n, "Id") {
		return strings.TrimSuffix(n, "Id") + "ID"
	}
	return n
}

func fkName(a *Association) string {
	return goName(a.Column)
}
