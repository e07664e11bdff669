package writer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"

	"github.com/minios-linux/xmlkit/event"
	"github.com/minios-linux/xmlkit/filter"
	"github.com/minios-linux/xmlkit/profile"
)

// roundTrip filters data, lets edit touch the text units and writes the
// events back.
func roundTrip(t *testing.T, profileID string, data []byte, edit func(tu *event.Unit)) []byte {
	t.Helper()
	f := filter.New(filter.WithLogger(zerolog.Nop()))
	err := f.Open(filter.Input{
		Reader:       bytes.NewReader(data),
		Name:         "doc.xml",
		SourceLocale: "en",
		ProfileID:    profileID,
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	events, err := f.Events()
	if err != nil {
		t.Fatalf("Events error: %v", err)
	}
	if edit != nil {
		for _, ev := range events {
			if ev.Type == event.TextUnit {
				edit(ev.TextUnit)
			}
		}
	}

	var out bytes.Buffer
	if err := New(&out, f.EncoderManager()).WriteAll(events); err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	return out.Bytes()
}

func utf16(t *testing.T, order unicode.Endianness, s string) []byte {
	t.Helper()
	b, err := unicode.UTF16(order, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return b
}

func TestRoundTripUnchanged(t *testing.T) {
	android := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<!-- Copyright -->\n" +
		"<resources xmlns:xliff=\"urn:oasis:names:tc:xliff:document:1.2\">\n" +
		"    <!-- Greeting shown on start -->\n" +
		"    <string name=\"hello\">Hello \\'world\\'</string>\n" +
		"    <string name=\"brand\" translatable=\"false\">Acme</string>\n" +
		"    <string name=\"count\">You have <xliff:g id=\"n\">%d</xliff:g> items &amp; more</string>\n" +
		"    <string-array name=\"days\">\n" +
		"        <item>Mon</item>\n" +
		"        <item><![CDATA[<b>Tue</b>]]></item>\n" +
		"    </string-array>\n" +
		"</resources>\n"

	resx := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\r\n" +
		"<root>\r\n" +
		"  <data name=\"Title\" xml:space=\"preserve\">\r\n" +
		"    <value>Main window</value>\r\n" +
		"    <comment>Window caption</comment>\r\n" +
		"  </data>\r\n" +
		"</root>"

	generic := "<doc>\r<p id=\"a\">one</p>\r<p>two</p>\r</doc>\r"

	entities := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<!DOCTYPE resources [\n<!ENTITY app \"Widget\">\n]>\n" +
		"<resources><string name=\"s\">Use &app; now</string></resources>\n"

	tests := []struct {
		name    string
		profile string
		data    []byte
	}{
		{name: "android", profile: profile.IDAndroidStrings, data: []byte(android)},
		{name: "resx crlf", profile: profile.IDResx, data: []byte(resx)},
		{name: "generic cr", profile: profile.IDGeneric, data: []byte(generic)},
		{name: "utf8 bom", profile: profile.IDAndroidStrings, data: append([]byte{0xEF, 0xBB, 0xBF}, android...)},
		{name: "protected entities", profile: profile.IDAndroidStrings, data: []byte(entities)},
		{name: "declaration on the root line", profile: profile.IDAndroidStrings, data: []byte(`<?xml version="1.0" encoding="UTF-8"?><resources><string name="a">A</string></resources>`)},
		{name: "declaration then lf in crlf document", profile: profile.IDGeneric, data: []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<doc>\r\n<p>one</p>\r\n</doc>")},
		{name: "utf16le bom", profile: profile.IDResx, data: append([]byte{0xFF, 0xFE}, utf16(t, unicode.LittleEndian, "<?xml version=\"1.0\" encoding=\"utf-16\"?>\r\n<root><data name=\"a\"><value>Grüße</value></data></root>")...)},
		{name: "utf16be bom", profile: profile.IDAndroidStrings, data: append([]byte{0xFE, 0xFF}, utf16(t, unicode.BigEndian, "<?xml version=\"1.0\" encoding=\"UTF-16\"?>\n<resources><string name=\"a\">日本</string></resources>")...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := roundTrip(t, tc.profile, tc.data, nil)
			if !bytes.Equal(got, tc.data) {
				t.Fatalf("round trip mismatch\n got: %q\nwant: %q", got, tc.data)
			}
		})
	}
}

func TestWriteAndroidTranslation(t *testing.T) {
	src := "<resources>\n  <string name=\"hello\">Hello \\'world\\'</string>\n  <string name=\"keep\">Keep</string>\n</resources>\n"
	got := roundTrip(t, profile.IDAndroidStrings, []byte(src), func(tu *event.Unit) {
		if tu.Name == "hello" {
			tu.SetTarget("Salut l'ami \"cher\"\nà bientôt & <b>plus</b>")
		}
	})
	want := "<resources>\n  <string name=\"hello\">Salut l\\'ami \\\"cher\\\"\\nà bientôt &amp; <b>plus</b></string>\n  <string name=\"keep\">Keep</string>\n</resources>\n"
	if string(got) != want {
		t.Fatalf("output\n got: %q\nwant: %q", got, want)
	}
}

func TestWriteGenericTranslationUsesDocumentNewline(t *testing.T) {
	src := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\r\n<doc>\r\n<p>one</p>\r\n</doc>"
	got := roundTrip(t, profile.IDGeneric, []byte(src), func(tu *event.Unit) {
		tu.SetTarget("un\ndeux > trois")
	})
	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\r\n<doc>\r\n<p>un\r\ndeux > trois</p>\r\n</doc>"
	if string(got) != want {
		t.Fatalf("output\n got: %q\nwant: %q", got, want)
	}
}

func TestWriteTargetKeepsOnlyDeclaredReferences(t *testing.T) {
	identity := func(tu *event.Unit) { tu.SetTarget(tu.Source) }
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "escaped reference text",
			src:  `<doc><p>Write &amp;lt; for less-than</p></doc>`,
			want: `<doc><p>Write &amp;lt; for less-than</p></doc>`,
		},
		{
			name: "declared entity",
			src:  "<!DOCTYPE doc [<!ENTITY app \"Widget\">]><doc><p>Use &app; &amp; &amp;app2;</p></doc>",
			want: "<!DOCTYPE doc [<!ENTITY app \"Widget\">]><doc><p>Use &app; &amp; &amp;app2;</p></doc>",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := roundTrip(t, profile.IDGeneric, []byte(tc.src), identity); string(got) != tc.want {
				t.Fatalf("output\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestWriteLatin1Translation(t *testing.T) {
	src := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<doc><p>caf\xe9</p></doc>"
	f := filter.New(filter.WithLogger(zerolog.Nop()))
	if err := f.Open(filter.Input{Reader: bytes.NewReader([]byte(src)), SourceLocale: "fr", Encoding: "ISO-8859-1"}); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	events, err := f.Events()
	if err != nil {
		t.Fatalf("Events error: %v", err)
	}
	for _, ev := range events {
		if ev.Type == event.TextUnit {
			if ev.TextUnit.Source != "café" {
				t.Fatalf("Source = %q, want café", ev.TextUnit.Source)
			}
			ev.TextUnit.SetTarget("thé 日")
		}
	}
	var out bytes.Buffer
	if err := New(&out, f.EncoderManager()).WriteAll(events); err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	want := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<doc><p>th\xe9 &#26085;</p></doc>"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestHandleRequiresStart(t *testing.T) {
	w := New(&bytes.Buffer{}, nil)
	err := w.Handle(&event.Event{Type: event.DocumentPart, Part: &event.Part{Skeleton: &event.Skeleton{}}})
	if !errors.Is(err, ErrNoStart) {
		t.Fatalf("Handle error = %v, want ErrNoStart", err)
	}
}

func TestWriteWithoutDecision(t *testing.T) {
	start := &event.Start{Skeleton: &event.Skeleton{}}
	skel := &event.Skeleton{}
	skel.Add("<a>")
	skel.AddSelf()
	skel.Add("</a>")
	tu := event.NewUnit("tu1", "", "x", "x", skel)
	tu.SetTarget("y & z")

	var out bytes.Buffer
	err := New(&out, nil).WriteAll([]*event.Event{
		{Type: event.StartDocument, Start: start},
		{Type: event.TextUnit, TextUnit: tu},
		{Type: event.EndDocument},
	})
	if err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	if out.String() != "<a>y & z</a>" {
		t.Fatalf("output = %q, want the target unescaped without a manager", out.String())
	}
}
