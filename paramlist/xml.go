package paramlist

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const (
	listElement      = "ParameterList"
	parameterElement = "Parameter"
)

// ErrMalformedDocument is returned when the XML is not a well formed parameter list.
var ErrMalformedDocument = errors.New("malformed parameter list document")

// ReadFile reads the parameter list stored at path.
func ReadFile(path string) (*List, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	list, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %q", path)
	}
	return list, nil
}

// Read decodes a parameter list document. The root element must be a ParameterList;
// comments, processing instructions and whitespace are skipped.
func Read(r io.Reader) (*List, error) {
	dec := xml.NewDecoder(r)
	var root *List
	var stack []*List
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrMalformedDocument, err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case listElement:
				name := attr(t, "name")
				if root == nil {
					root = New(name)
					stack = append(stack, root)
					continue
				}
				if len(stack) == 0 {
					return nil, errors.Wrap(ErrMalformedDocument, "more than one root element")
				}
				parent := stack[len(stack)-1]
				sub := New(name)
				parent.items = append(parent.items, item{kind: sublistItem, sublist: sub})
				stack = append(stack, sub)
			case parameterElement:
				if len(stack) == 0 {
					return nil, errors.Wrap(ErrMalformedDocument, "root element must be a ParameterList")
				}
				name := attr(t, "name")
				if name == "" {
					return nil, errors.Wrap(ErrMalformedDocument, "parameter without a name")
				}
				stack[len(stack)-1].set(name, Type(strings.ToLower(attr(t, "type"))), attr(t, "value"))
				if err := dec.Skip(); err != nil {
					return nil, errors.Wrap(ErrMalformedDocument, err.Error())
				}
			default:
				return nil, errors.Wrapf(ErrMalformedDocument, "unexpected element <%s>", t.Name.Local)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.Wrapf(ErrMalformedDocument, "unexpected closing </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 && strings.TrimSpace(string(t)) != "" {
				return nil, errors.Wrapf(ErrMalformedDocument, "unexpected text %q", strings.TrimSpace(string(t)))
			}
		}
	}
	if root == nil {
		return nil, errors.Wrap(ErrMalformedDocument, "no ParameterList element")
	}
	if len(stack) != 0 {
		return nil, errors.Wrap(ErrMalformedDocument, "unclosed ParameterList")
	}
	return root, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Write encodes the list as an indented XML document.
func (l *List) Write(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := l.encode(enc, true); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (l *List) encode(enc *xml.Encoder, root bool) error {
	start := xml.StartElement{Name: xml.Name{Local: listElement}}
	if !root || l.Name != "" {
		start.Attr = []xml.Attr{{Name: xml.Name{Local: "name"}, Value: l.Name}}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, it := range l.items {
		switch it.kind {
		case parameterItem:
			el := xml.StartElement{
				Name: xml.Name{Local: parameterElement},
				Attr: []xml.Attr{
					{Name: xml.Name{Local: "name"}, Value: it.param.Name},
					{Name: xml.Name{Local: "type"}, Value: string(it.param.Type)},
					{Name: xml.Name{Local: "value"}, Value: it.param.Value},
				},
			}
			if err := enc.EncodeToken(el); err != nil {
				return err
			}
			if err := enc.EncodeToken(el.End()); err != nil {
				return err
			}
		case sublistItem:
			if err := it.sublist.encode(enc, false); err != nil {
				return err
			}
		case commentItem:
			// "--" is not allowed inside an XML comment
			text := it.comment
			for strings.Contains(text, "--") {
				text = strings.ReplaceAll(text, "--", "- -")
			}
			text = " " + text + " "
			if err := enc.EncodeToken(xml.Comment(text)); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}
