package rodpage

// enumerateScript discovers visible interactive elements, stamps each with an
// addressable ID, and returns a compact JSON description. Selector groups and
// the visibility filter follow the usual interactive-element heuristics:
// semantic roles, explicit interaction attributes, and pointer-affordance
// styling.
const enumerateScript = `(prefix) => {
	const selectors = {
		button: 'button, input[type="submit"], input[type="button"], [role="button"]',
		link: 'a[href]',
		input: 'input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea, [contenteditable="true"], select',
		clickable: '[onclick], [role="menuitem"], [role="tab"], [role="option"], [tabindex]:not([tabindex="-1"])'
	};

	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const s = getComputedStyle(el);
		return s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	};

	const derivedText = (el) => {
		let t = (el.innerText || el.textContent || '').trim();
		if (!t) t = el.getAttribute('aria-label') || '';
		if (!t) t = el.getAttribute('title') || '';
		if (!t) t = el.getAttribute('placeholder') || '';
		if (!t) t = el.getAttribute('name') || '';
		if (!t) t = el.id || '';
		return t.trim().slice(0, 80);
	};

	if (typeof window.__voxnavSeq !== 'number') window.__voxnavSeq = 0;

	const out = [];
	const seen = new Set();
	for (const [role, sel] of Object.entries(selectors)) {
		for (const el of document.querySelectorAll(sel)) {
			if (seen.has(el) || !visible(el)) continue;
			seen.add(el);
			if (!el.hasAttribute('data-voxnav-id')) {
				el.setAttribute('data-voxnav-id', prefix + (window.__voxnavSeq++));
			}
			const r = el.getBoundingClientRect();
			out.push({
				id: el.getAttribute('data-voxnav-id'),
				role: role,
				text: derivedText(el),
				x: r.x + window.scrollX,
				y: r.y + window.scrollY,
				w: r.width,
				h: r.height
			});
		}
	}
	return out;
}`

// observerScript installs the surface observers. Structural changes that add a
// menu/dialog/nav-like subtree are reported as important; everything else is
// an ordinary mutation. Readiness milestones, scroll activity (coalesced to one
// report per animation frame), and visibility changes are forwarded as their
// own kinds. Installation is idempotent per page load.
const observerScript = `() => {
	if (window.__voxnavObserved) return;
	window.__voxnavObserved = true;

	const emit = (kind) => { try { window.__voxnavEmit({kind: kind}); } catch (e) {} };

	const important = (node) => {
		if (!(node instanceof Element)) return false;
		const role = node.getAttribute && (node.getAttribute('role') || '');
		if (['menu', 'dialog', 'navigation', 'listbox', 'alertdialog'].includes(role)) return true;
		const tag = node.tagName;
		if (tag === 'DIALOG' || tag === 'NAV') return true;
		return !!(node.querySelector && node.querySelector('dialog, nav, [role="menu"], [role="dialog"], [role="navigation"]'));
	};

	new MutationObserver((records) => {
		for (const rec of records) {
			for (const node of rec.addedNodes) {
				if (important(node)) { emit('mutation-important'); return; }
			}
		}
		emit('mutation');
	}).observe(document.documentElement, {childList: true, subtree: true, attributes: true});

	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', () => emit('ready'), {once: true});
	} else {
		emit('ready');
	}
	if (document.readyState === 'complete') {
		emit('loaded');
	} else {
		window.addEventListener('load', () => emit('loaded'), {once: true});
	}

	let scrollQueued = false;
	window.addEventListener('scroll', () => {
		if (scrollQueued) return;
		scrollQueued = true;
		requestAnimationFrame(() => { scrollQueued = false; emit('scroll'); });
	}, {passive: true});

	document.addEventListener('visibilitychange', () => {
		emit(document.visibilityState === 'hidden' ? 'hidden' : 'visible');
	});

	window.addEventListener('pagehide', () => emit('teardown'), {once: true});
}`

// highlightScript replaces any existing overlays with boxes over the given
// element IDs.
const highlightScript = `(ids) => {
	document.querySelectorAll('.voxnav-overlay').forEach(n => n.remove());
	for (const id of ids) {
		const el = document.querySelector('[data-voxnav-id="' + CSS.escape(id) + '"]');
		if (!el) continue;
		const r = el.getBoundingClientRect();
		const box = document.createElement('div');
		box.className = 'voxnav-overlay';
		box.style.cssText =
			'position:absolute;z-index:2147483646;pointer-events:none;' +
			'border:2px solid #4c8bf5;border-radius:4px;' +
			'left:' + (r.x + window.scrollX - 3) + 'px;' +
			'top:' + (r.y + window.scrollY - 3) + 'px;' +
			'width:' + (r.width + 2) + 'px;' +
			'height:' + (r.height + 2) + 'px;';
		document.body.appendChild(box);
	}
}`
