package roster

import "strings"

// FallbackClass - группа по умолчанию, если ничего другого не нашлось.
const FallbackClass = "General Class"

// Location - филиал клуба и его группы.
type Location struct {
	Name    string
	Classes []string
}

// Directory - справочник филиалов и групп из конфигурации.
type Directory struct {
	locations []Location
}

// NewDirectory создаёт справочник; пустые названия отбрасываются.
func NewDirectory(locations []Location) Directory {
	out := make([]Location, 0, len(locations))
	for _, l := range locations {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		classes := make([]string, 0, len(l.Classes))
		for _, c := range l.Classes {
			if c = strings.TrimSpace(c); c != "" {
				classes = append(classes, c)
			}
		}
		out = append(out, Location{Name: name, Classes: classes})
	}
	return Directory{locations: out}
}

// Locations возвращает копию списка филиалов.
func (d Directory) Locations() []Location {
	out := make([]Location, len(d.locations))
	copy(out, d.locations)
	return out
}

func (d Directory) find(name string) (Location, bool) {
	name = strings.TrimSpace(name)
	for _, l := range d.locations {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Location{}, false
}

// Classes возвращает группы филиала.
func (d Directory) Classes(location string) []string {
	l, ok := d.find(location)
	if !ok {
		return nil
	}
	return append([]string(nil), l.Classes...)
}

// ResolveLocation принимает филиал из строки, только если он есть в справочнике;
// иначе возвращает филиал по умолчанию для пакета.
func (d Directory) ResolveLocation(cell, fallback string) string {
	if cell != "" {
		if l, ok := d.find(cell); ok {
			return l.Name
		}
	}
	return strings.TrimSpace(fallback)
}

// ResolveClass принимает группу из строки, только если она есть у филиала;
// иначе группа по умолчанию для пакета, иначе первая группа филиала,
// иначе FallbackClass.
func (d Directory) ResolveClass(location, cell, fallback string) string {
	classes := d.Classes(location)

	if cell = strings.TrimSpace(cell); cell != "" {
		for _, c := range classes {
			if strings.EqualFold(c, cell) {
				return c
			}
		}
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	if len(classes) > 0 {
		return classes[0]
	}
	return FallbackClass
}
