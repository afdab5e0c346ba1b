package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/tickcodec/codec"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/expr"
	"github.com/wippyai/tickcodec/schema"
)

type options struct {
	className string
	encode    string
	decode    string
	expr      string
	batch     string
	layout    bool
	list      bool
}

func main() {
	var (
		schemaFile  = flag.String("schema", "", "Path to schema YAML file")
		witFile     = flag.String("wit", "", "WIT JSON document whose records are imported as classes")
		className   = flag.String("class", "", "Record class to work with")
		encodeFile  = flag.String("encode", "", "YAML file holding a record, or a list of records, to encode")
		decodeHex   = flag.String("decode", "", "Hex-encoded record to decode")
		exprText    = flag.String("expr", "", "Expression to evaluate on each record")
		batchFile   = flag.String("batch", "", "Write the encoded records to this file as one batch")
		layout      = flag.Bool("layout", false, "Print the wire layout of the class")
		list        = flag.Bool("list", false, "List classes and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log compiler activity")
	)
	flag.Parse()

	if *schemaFile == "" && *witFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: tbc -schema <file.yaml> -list")
		fmt.Fprintln(os.Stderr, "       tbc -schema <file.yaml> -class <name> [-layout] [-encode rec.yaml] [-decode hex] [-expr text] [-batch out.bin]")
		fmt.Fprintln(os.Stderr, "       tbc -wit <file.wit.json> -class <name> -layout")
		fmt.Fprintln(os.Stderr, "       tbc -schema <file.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			defer func() { _ = l.Sync() }()
			codec.SetLogger(l)
			expr.SetLogger(l)
		}
	}

	set, err := loadSet(*schemaFile, *witFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(set, *schemaFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := options{
		className: *className,
		encode:    *encodeFile,
		decode:    *decodeHex,
		expr:      *exprText,
		batch:     *batchFile,
		layout:    *layout,
		list:      *list,
	}
	if err := run(set, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadSet(schemaFile, witFile string) (*schema.Set, error) {
	set := schema.NewSet()
	if schemaFile != "" {
		var err error
		if set, err = schema.LoadFile(schemaFile); err != nil {
			return nil, err
		}
	}
	if witFile == "" {
		return set, nil
	}
	f, err := os.Open(witFile)
	if err != nil {
		return nil, fmt.Errorf("open WIT: %w", err)
	}
	defer f.Close()
	res, err := wit.DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("decode WIT: %w", err)
	}
	for _, td := range res.TypeDefs {
		if _, ok := td.Kind.(*wit.Record); !ok || td.Name == nil {
			continue
		}
		if _, err := set.ImportWIT(td); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func run(set *schema.Set, opts options) error {
	st := newStyles(os.Stdout)

	if opts.list || opts.className == "" {
		fmt.Println(renderClasses(st, set))
		if opts.className == "" && !opts.list {
			fmt.Println("\nUse -class to pick a class.")
		}
		return nil
	}

	class := set.Class(opts.className)
	if class == nil {
		return errors.UnknownType(errors.PhaseLoad, errors.Span{}, opts.className)
	}
	cc := codec.NewCompiler(
		codec.WithSet(set),
		codec.WithLoader(codec.NewCachingLoader(codec.NewRegistryLoader(set, nil))),
	)

	var prog *expr.Program
	if opts.expr != "" {
		var err error
		prog, err = expr.Compile(opts.expr, class, expr.WithSet(set), expr.WithCompiler(cc), expr.WithSource("-expr"))
		if err != nil {
			return err
		}
		fmt.Printf("Expression: %s -> %s\n", st.expr.Render(opts.expr), st.typ.Render(typeName(prog.ResultType())))
	}

	if class.Abstract {
		fmt.Printf("Class %s is abstract and has no codec.\n", st.class.Render(class.Name))
		if opts.layout || opts.encode != "" || opts.decode != "" {
			return errors.IllegalAbstractType(errors.PhaseCompile, class.Span, class.Name)
		}
		return nil
	}
	cdc, err := cc.Compile(class)
	if err != nil {
		return err
	}

	if opts.layout {
		fmt.Println(renderLayout(st, cdc))
	}

	var inst *expr.Instance
	if prog != nil {
		inst = prog.NewInstance()
	}

	if opts.encode != "" {
		if err := encodeFile(st, cdc, opts.encode, opts.batch, inst); err != nil {
			return err
		}
	}
	if opts.decode != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(strings.ReplaceAll(opts.decode, " ", ""), "0x"))
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}
		rec, err := cdc.Decode(data)
		if err != nil {
			return err
		}
		fmt.Printf("Decoded %s: %s\n", humanize.Bytes(uint64(len(data))), st.value.Render(rec.String()))
		if inst != nil {
			if err := evaluate(st, inst, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeFile(st styles, cdc *codec.Codec, path, batchPath string, inst *expr.Instance) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindSyntax, err, "malformed record document "+path)
	}
	var items []any
	switch d := doc.(type) {
	case []any:
		items = d
	case map[string]any:
		items = []any{d}
	default:
		return errors.InvalidData(errors.PhaseEncode, nil, "record document must be a mapping or a list of mappings")
	}

	records := make([]*codec.Record, 0, len(items))
	total := 0
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return errors.InvalidData(errors.PhaseEncode, []string{fmt.Sprintf("[%d]", i)}, "record must be a mapping")
		}
		rec, err := recordFromMap(cdc, m)
		if err != nil {
			return err
		}
		data, err := cdc.Encode(rec)
		if err != nil {
			return err
		}
		total += len(data)
		records = append(records, rec)
		fmt.Printf("%s %s (%s)\n", st.label.Render(fmt.Sprintf("#%d", i)), hex.EncodeToString(data), humanize.Bytes(uint64(len(data))))
		if inst != nil {
			if err := evaluate(st, inst, rec); err != nil {
				return err
			}
		}
	}

	if batchPath == "" {
		return nil
	}
	block, err := codec.EncodeBatch(cdc, records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(batchPath, block, 0o644); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	fmt.Printf("Wrote %s records to %s: %s (%s before compression)\n",
		humanize.Comma(int64(len(records))), batchPath,
		humanize.Bytes(uint64(len(block))), humanize.Bytes(uint64(total)))
	return nil
}

// recordFromMap starts from the class defaults and coerces each given
// value to its field type.
func recordFromMap(cdc *codec.Codec, m map[string]any) (*codec.Record, error) {
	class := cdc.Class()
	rec := cdc.NewRecord()
	for name, v := range m {
		f := class.Field(name)
		if f == nil {
			return nil, errors.FieldUnknown(errors.PhaseEncode, []string{class.Name}, name)
		}
		if f.Static {
			continue
		}
		nv, err := codec.Coerce(f.Type, v)
		if err != nil {
			if e, ok := errors.As(err); ok && len(e.Path) == 0 {
				e.Path = []string{class.Name, name}
			}
			return nil, err
		}
		if err := rec.Set(name, nv); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func evaluate(st styles, inst *expr.Instance, rec *codec.Record) error {
	v, err := inst.Evaluate(rec)
	if err != nil {
		return err
	}
	fmt.Printf("   = %s\n", st.result.Render(codec.FormatValue(v)))
	return nil
}

func typeName(dt *schema.DataType) string {
	if dt.Nullable {
		return dt.String()
	}
	return dt.String() + "!"
}
